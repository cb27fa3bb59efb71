// internal/game/room.go
package game

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/rajamantri/server/internal/cache"
	"github.com/rajamantri/server/internal/models"
)

// OnFinishFunc handles a finished game: persisting results, notifying the
// lobby layer, etc. Invoked outside the room lock.
type OnFinishFunc func(roomCode string, totalRounds int, standings []models.Standing)

// RoomEventType is an enum-like type for events fanned out to clients.
type RoomEventType string

const (
	EventRoomState   RoomEventType = "room_state"   // Personalized full-state sync, sent on every change
	EventChat        RoomEventType = "chat"         // Relayed chat message
	EventRoundResult RoomEventType = "round_result" // Public resolution of the Mantri's guess
	EventGameEnd     RoomEventType = "game_end"     // Final standings after the last round
)

// RoomEvent holds data about an event broadcast to clients in a consistent format.
type RoomEvent struct {
	Type  RoomEventType `json:"type"`
	State *RoomView     `json:"state,omitempty"`

	Payload map[string]interface{} `json:"payload,omitempty"`
}

const (
	// MaxSeats is fixed by the game itself: four roles, four players.
	MaxSeats = 4

	DefaultTotalRounds = 5
	MinTotalRounds     = 5
	MaxTotalRounds     = 15

	// defaultShuffleDuration matches the client's shuffle animation length, but
	// the timer is server-owned: the transition fires here regardless of what
	// any client renders.
	defaultShuffleDuration = 3500 * time.Millisecond

	// defaultRevealDelay holds the revealing phase open long enough for the
	// Raja and Mantri slips to be shown before the Mantri must choose.
	defaultRevealDelay = 2 * time.Second

	// defaultGraceDuration is how long a room with zero connected seats
	// lingers before it is expired.
	defaultGraceDuration = 60 * time.Second
)

// GameRoom holds the entire state for one game session in memory. It is the
// single writer for that session: every mutation happens under Mu, so state
// transitions are linearizable per room.
type GameRoom struct {
	Code      string
	CreatedBy uuid.UUID
	CreatedAt time.Time

	// Players in seat order; index order is join order.
	Players []*models.Player

	CurrentRound int
	TotalRounds  int
	Phase        models.GamePhase

	// Roles holds the current round's role ids. Zero until the first shuffle
	// completes.
	Roles RoundRoles

	// Selection is the Mantri's accusation; present only in the results phase.
	Selection *models.MantriSelection

	// pendingRoles is the assignment computed when a shuffle is triggered and
	// written to seats when the shuffle timer fires.
	pendingRoles map[uuid.UUID]models.RoleName
	pendingRound int

	ShuffleDuration time.Duration
	RevealDelay     time.Duration
	GraceDuration   time.Duration

	shuffleTimer *time.Timer
	revealTimer  *time.Timer
	expiryTimer  *time.Timer

	seatSeq     int
	actionIndex int

	Mu sync.Mutex

	// BroadcastFn sends an event to every connected seat. If nil, no broadcast is done.
	BroadcastFn func(ev RoomEvent)

	// BroadcastToPlayerFn sends an event to a single specific seat.
	BroadcastToPlayerFn func(playerID uuid.UUID, ev RoomEvent)

	// OnFinish is invoked once when the room reaches the finished phase.
	OnFinish OnFinishFunc

	// OnEmpty is called when the room has had zero connected seats for the
	// grace duration. Typically assigned by the store:
	//   room.OnEmpty = func(code string) { store.DeleteRoom(code) }
	OnEmpty func(code string)
}

// NewGameRoom builds an empty room in the lobby phase. totalRounds outside
// [MinTotalRounds, MaxTotalRounds] falls back to the default.
func NewGameRoom(code string, totalRounds int) *GameRoom {
	if totalRounds < MinTotalRounds || totalRounds > MaxTotalRounds {
		totalRounds = DefaultTotalRounds
	}
	return &GameRoom{
		Code:            code,
		CreatedAt:       time.Now(),
		CurrentRound:    1,
		TotalRounds:     totalRounds,
		Phase:           models.PhaseLobby,
		ShuffleDuration: defaultShuffleDuration,
		RevealDelay:     defaultRevealDelay,
		GraceDuration:   defaultGraceDuration,
	}
}

// AddPlayer seats a new player. Seating is only possible in the lobby and
// while fewer than four seats are taken. The first seat becomes the room
// creator.
func (g *GameRoom) AddPlayer(name string) (*models.Player, error) {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if name == "" || utf8.RuneCountInString(name) > 20 {
		return nil, ErrInvalidName
	}
	if g.Phase != models.PhaseLobby {
		return nil, ErrWrongPhase
	}
	if len(g.Players) >= MaxSeats {
		return nil, ErrRoomFull
	}

	p := &models.Player{
		ID:        uuid.New(),
		Name:      name,
		JoinOrder: g.seatSeq,
	}
	g.seatSeq++
	g.Players = append(g.Players, p)
	if g.CreatedBy == uuid.Nil {
		g.CreatedBy = p.ID
	}
	g.cancelExpiryLocked()

	log.Printf("Room %s: seated player %s (%s), %d/%d seats taken.", g.Code, p.Name, p.ID, len(g.Players), MaxSeats)
	g.logAction(p.ID, "player_join", map[string]interface{}{"name": p.Name})
	g.broadcastRoomStateLocked()
	return p, nil
}

// HandleReconnect attaches a live websocket connection to an existing seat
// and sends that seat the current authoritative state. A client that comes
// back mid-delay resynchronizes from this snapshot; phase timers are never
// re-run for it.
func (g *GameRoom) HandleReconnect(playerID uuid.UUID, conn *websocket.Conn) error {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	p := g.getPlayerLocked(playerID)
	if p == nil {
		return ErrNotSeated
	}
	if p.IsConnected && p.Conn != nil && p.Conn != conn {
		// The old transport died silently; the new one replaces it.
		p.Conn.Close(websocket.StatusPolicyViolation, "replaced by a newer connection")
	}
	p.Conn = conn
	p.IsConnected = true
	g.cancelExpiryLocked()

	g.logAction(playerID, "player_connect", nil)
	g.broadcastRoomStateLocked()
	return nil
}

// HandleDisconnect records a transport drop. In the lobby the seat is removed
// outright; once a round is active the seat is only flagged disconnected so
// the round's role and point bookkeeping stays intact. conn identifies the
// transport that dropped: a drop from a connection the seat no longer holds
// (the client refreshed and a newer socket already took over) is ignored.
func (g *GameRoom) HandleDisconnect(playerID uuid.UUID, conn *websocket.Conn) {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	p := g.getPlayerLocked(playerID)
	if p == nil {
		return
	}
	if p.Conn != conn {
		log.Printf("Room %s: ignoring disconnect from a superseded connection for player %s.", g.Code, playerID)
		return
	}
	g.logAction(playerID, "player_disconnect", nil)

	if g.Phase == models.PhaseLobby {
		g.removeSeatLocked(playerID)
	} else {
		p.IsConnected = false
		p.Conn = nil
	}

	g.broadcastRoomStateLocked()
	if g.countConnectedLocked() == 0 {
		g.scheduleExpiryLocked()
	}
}

// Leave handles an explicit leave request. Same seat policy as disconnects:
// full removal only in the lobby, a liveness flag everywhere else.
func (g *GameRoom) Leave(playerID uuid.UUID) error {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	p := g.getPlayerLocked(playerID)
	if p == nil {
		return ErrNotSeated
	}
	g.logAction(playerID, "player_leave", nil)

	if g.Phase == models.PhaseLobby {
		g.removeSeatLocked(playerID)
	} else {
		p.IsConnected = false
		p.Conn = nil
	}

	g.broadcastRoomStateLocked()
	if g.countConnectedLocked() == 0 {
		g.scheduleExpiryLocked()
	}
	return nil
}

// StartGame begins round 1. Only the creator may start, and only with
// exactly four seats taken. The role assignment is computed up front and
// held pending until the shuffle timer writes it.
func (g *GameRoom) StartGame(playerID uuid.UUID) error {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if g.Phase != models.PhaseLobby {
		return ErrWrongPhase
	}
	if playerID != g.CreatedBy {
		return ErrNotCreator
	}
	if len(g.Players) != MaxSeats {
		return ErrWrongPlayerCount
	}

	assign, err := AssignRoles(g.seatIDsLocked())
	if err != nil {
		return err
	}
	g.logAction(playerID, "game_start", map[string]interface{}{"totalRounds": g.TotalRounds})
	g.beginShuffleLocked(1, assign)
	return nil
}

// SubmitGuess resolves the round. Only the current Mantri may submit, and
// only during mantriChoice. Scoring, point accumulation, the recorded
// selection and the phase change to results are one atomic unit under the
// room lock; a guard failure mutates nothing.
func (g *GameRoom) SubmitGuess(playerID, chorGuess, sipahiGuess uuid.UUID) error {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if g.Phase != models.PhaseMantriChoice {
		return ErrWrongPhase
	}
	if playerID != g.Roles.MantriID {
		return ErrNotMantri
	}

	res, err := ScoreRound(g.Roles, chorGuess, sipahiGuess)
	if err != nil {
		return err
	}

	awards := make(map[string]int, len(res.Awards))
	for id, award := range res.Awards {
		if p := g.getPlayerLocked(id); p != nil {
			p.TotalPoints += award
		}
		awards[id.String()] = award
	}
	g.Selection = &models.MantriSelection{
		ChorGuess:   chorGuess,
		SipahiGuess: sipahiGuess,
		Correct:     res.Correct,
	}
	g.Phase = models.PhaseResults

	g.logAction(playerID, "mantri_guess", map[string]interface{}{
		"chorGuess":   chorGuess.String(),
		"sipahiGuess": sipahiGuess.String(),
		"correct":     res.Correct,
	})
	g.fireEventLocked(RoomEvent{
		Type: EventRoundResult,
		Payload: map[string]interface{}{
			"round":     g.CurrentRound,
			"correct":   res.Correct,
			"awards":    awards,
			"selection": g.Selection,
			"roles":     g.Roles,
		},
	})
	g.broadcastRoomStateLocked()
	return nil
}

// AdvanceRound moves past the results phase. Only the creator may advance.
// On the final round the room finishes; otherwise the next round's shuffle
// begins with a fresh assignment and the previous selection cleared.
func (g *GameRoom) AdvanceRound(playerID uuid.UUID) error {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if g.Phase != models.PhaseResults {
		return ErrWrongPhase
	}
	if playerID != g.CreatedBy {
		return ErrNotCreator
	}

	if g.CurrentRound >= g.TotalRounds {
		g.finishGameLocked()
		return nil
	}

	assign, err := AssignRoles(g.seatIDsLocked())
	if err != nil {
		return err
	}
	g.Selection = nil
	g.logAction(playerID, "round_advance", map[string]interface{}{"round": g.CurrentRound + 1})
	g.beginShuffleLocked(g.CurrentRound+1, assign)
	return nil
}

// Chat relays a chat message from a seated player to the whole room.
func (g *GameRoom) Chat(playerID uuid.UUID, msg string) error {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	p := g.getPlayerLocked(playerID)
	if p == nil {
		return ErrNotSeated
	}
	g.fireEventLocked(RoomEvent{
		Type: EventChat,
		Payload: map[string]interface{}{
			"playerId": playerID.String(),
			"name":     p.Name,
			"msg":      msg,
			"ts":       time.Now().Unix(),
		},
	})
	return nil
}

// Standings returns the final ranking: total points descending, ties broken
// by earlier join order. Stable for any phase, but only meaningful once
// points exist.
func (g *GameRoom) Standings() []models.Standing {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.standingsLocked()
}

// ScheduleExpiry arms the empty-room timer if no seat is currently
// connected. Used right after creation, before anyone has opened a socket.
func (g *GameRoom) ScheduleExpiry() {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	if g.countConnectedLocked() == 0 {
		g.scheduleExpiryLocked()
	}
}

// Close stops every outstanding timer. Used when the store drops the room.
func (g *GameRoom) Close() {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	g.stopTimersLocked()
	g.cancelExpiryLocked()
}

// beginShuffleLocked enters the shuffling phase for the given round. The
// pending assignment is written only when the shuffle timer fires, matching
// the animation gate the clients synchronize on. Assumes lock is held.
func (g *GameRoom) beginShuffleLocked(round int, assign map[uuid.UUID]models.RoleName) {
	g.pendingRound = round
	g.pendingRoles = assign
	g.Phase = models.PhaseShuffling
	g.broadcastRoomStateLocked()

	if g.shuffleTimer != nil {
		g.shuffleTimer.Stop()
	}
	g.shuffleTimer = time.AfterFunc(g.ShuffleDuration, func() {
		g.finishShuffle(round)
	})
}

// finishShuffle writes the pending roles and enters revealing. A stale timer
// (phase moved on, or a newer shuffle superseded this one) is ignored.
func (g *GameRoom) finishShuffle(round int) {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if g.Phase != models.PhaseShuffling || g.pendingRound != round {
		log.Printf("Room %s: stale shuffle timer for round %d fired. Ignoring.", g.Code, round)
		return
	}

	var roles RoundRoles
	for _, p := range g.Players {
		role, ok := g.pendingRoles[p.ID]
		if !ok {
			continue
		}
		p.Role = role
		p.RoleHistory = append(p.RoleHistory, role)
		switch role {
		case models.RoleRaja:
			roles.RajaID = p.ID
		case models.RoleMantri:
			roles.MantriID = p.ID
		case models.RoleChor:
			roles.ChorID = p.ID
		case models.RoleSipahi:
			roles.SipahiID = p.ID
		}
	}
	g.Roles = roles
	g.CurrentRound = round
	g.pendingRoles = nil
	g.Phase = models.PhaseRevealing

	g.logAction(uuid.Nil, "roles_assigned", map[string]interface{}{"round": round})
	g.broadcastRoomStateLocked()

	if g.revealTimer != nil {
		g.revealTimer.Stop()
	}
	g.revealTimer = time.AfterFunc(g.RevealDelay, func() {
		g.beginMantriChoice(round)
	})
}

// beginMantriChoice moves revealing => mantriChoice once the reveal delay has
// run. Requires the Raja and Mantri ids to be set, which finishShuffle
// guarantees.
func (g *GameRoom) beginMantriChoice(round int) {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if g.Phase != models.PhaseRevealing || g.CurrentRound != round {
		return
	}
	if g.Roles.RajaID == uuid.Nil || g.Roles.MantriID == uuid.Nil {
		log.Printf("Room %s: revealing phase without raja/mantri set. Not advancing.", g.Code)
		return
	}
	g.Phase = models.PhaseMantriChoice
	g.broadcastRoomStateLocked()
}

// finishGameLocked enters the terminal phase, reports standings and hands the
// result to OnFinish. Assumes lock is held.
func (g *GameRoom) finishGameLocked() {
	g.Phase = models.PhaseFinished
	g.Selection = nil
	g.stopTimersLocked()

	standings := g.standingsLocked()
	var winner string
	if len(standings) > 0 {
		winner = standings[0].PlayerID.String()
	}

	g.logAction(uuid.Nil, "game_end", map[string]interface{}{"winner": winner})
	g.fireEventLocked(RoomEvent{
		Type: EventGameEnd,
		Payload: map[string]interface{}{
			"winner":    winner,
			"standings": standings,
		},
	})
	g.broadcastRoomStateLocked()

	if g.OnFinish != nil {
		go g.OnFinish(g.Code, g.TotalRounds, standings)
	}
}

func (g *GameRoom) standingsLocked() []models.Standing {
	ranked := make([]*models.Player, len(g.Players))
	copy(ranked, g.Players)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].TotalPoints != ranked[j].TotalPoints {
			return ranked[i].TotalPoints > ranked[j].TotalPoints
		}
		return ranked[i].JoinOrder < ranked[j].JoinOrder
	})

	standings := make([]models.Standing, len(ranked))
	for i, p := range ranked {
		standings[i] = models.Standing{
			PlayerID:  p.ID,
			Name:      p.Name,
			Points:    p.TotalPoints,
			Placement: i + 1,
		}
	}
	return standings
}

// removeSeatLocked hard-deletes a seat. Only ever called in the lobby phase.
func (g *GameRoom) removeSeatLocked(playerID uuid.UUID) {
	for i, p := range g.Players {
		if p.ID == playerID {
			g.Players = append(g.Players[:i], g.Players[i+1:]...)
			break
		}
	}
	// The creator leaving in the lobby hands authority to the oldest seat.
	if g.CreatedBy == playerID {
		g.CreatedBy = uuid.Nil
		if len(g.Players) > 0 {
			g.CreatedBy = g.Players[0].ID
		}
	}
	log.Printf("Room %s: removed seat %s, %d seats remain.", g.Code, playerID, len(g.Players))
}

func (g *GameRoom) seatIDsLocked() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(g.Players))
	for _, p := range g.Players {
		ids = append(ids, p.ID)
	}
	return ids
}

func (g *GameRoom) getPlayerLocked(playerID uuid.UUID) *models.Player {
	for _, p := range g.Players {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}

func (g *GameRoom) countConnectedLocked() int {
	count := 0
	for _, p := range g.Players {
		if p.IsConnected {
			count++
		}
	}
	return count
}

// scheduleExpiryLocked arms the empty-room timer. The room is deleted
// deterministically after the grace period rather than waiting for clients
// to observe the empty state.
func (g *GameRoom) scheduleExpiryLocked() {
	if g.expiryTimer != nil {
		return
	}
	code := g.Code
	g.expiryTimer = time.AfterFunc(g.GraceDuration, func() {
		g.Mu.Lock()
		stillEmpty := g.countConnectedLocked() == 0
		onEmpty := g.OnEmpty
		g.expiryTimer = nil
		if stillEmpty {
			g.stopTimersLocked()
		}
		g.Mu.Unlock()

		if stillEmpty && onEmpty != nil {
			log.Printf("Room %s: empty past grace period. Expiring.", code)
			onEmpty(code)
		}
	})
}

func (g *GameRoom) cancelExpiryLocked() {
	if g.expiryTimer != nil {
		g.expiryTimer.Stop()
		g.expiryTimer = nil
	}
}

func (g *GameRoom) stopTimersLocked() {
	if g.shuffleTimer != nil {
		g.shuffleTimer.Stop()
		g.shuffleTimer = nil
	}
	if g.revealTimer != nil {
		g.revealTimer.Stop()
		g.revealTimer = nil
	}
}

// fireEventLocked hands a public event to the broadcast function, if set.
func (g *GameRoom) fireEventLocked(ev RoomEvent) {
	if g.BroadcastFn != nil {
		g.BroadcastFn(ev)
	}
}

// broadcastRoomStateLocked fans out a personalized full-state snapshot to
// every connected seat. Role visibility differs per viewer, so each seat
// gets its own view.
func (g *GameRoom) broadcastRoomStateLocked() {
	if g.BroadcastToPlayerFn == nil {
		return
	}
	for _, p := range g.Players {
		if !p.IsConnected {
			continue
		}
		view := g.buildRoomViewLocked(p.ID)
		g.BroadcastToPlayerFn(p.ID, RoomEvent{Type: EventRoomState, State: view})
	}
}

// RequestSync re-sends the authoritative snapshot to one seat, e.g. when a
// client wants to double-check its view after a hiccup.
func (g *GameRoom) RequestSync(playerID uuid.UUID) {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	g.sendSyncStateLocked(playerID)
}

// sendSyncStateLocked sends the current authoritative state to one seat.
func (g *GameRoom) sendSyncStateLocked(playerID uuid.UUID) {
	if g.BroadcastToPlayerFn == nil {
		return
	}
	view := g.buildRoomViewLocked(playerID)
	g.BroadcastToPlayerFn(playerID, RoomEvent{Type: EventRoomState, State: view})
}

// logAction publishes an audit record of the mutation to the Redis action
// queue. Fire-and-forget; the room never blocks on the queue.
func (g *GameRoom) logAction(actorID uuid.UUID, actionType string, payload map[string]interface{}) {
	g.actionIndex++
	if payload == nil {
		payload = make(map[string]interface{})
	}
	record := cache.RoomActionRecord{
		RoomCode:      g.Code,
		ActionIndex:   g.actionIndex,
		ActorPlayerID: actorID,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     time.Now().UnixMilli(),
	}
	go func(rec cache.RoomActionRecord) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if cache.Rdb == nil {
			return
		}
		if err := cache.PublishRoomAction(ctx, rec); err != nil {
			log.Printf("Error publishing action %d to Redis for room %s: %v", rec.ActionIndex, g.Code, err)
		}
	}(record)
}
