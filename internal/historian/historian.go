// Package historian is the asynchronous consumer of the room action queue.
// The game server pushes every room action onto a Redis list; this service
// pops them, batches them and persists them to PostgreSQL, and marks rooms
// abandoned once their action stream goes silent for too long.
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rajamantri/server/internal/cache"
	"github.com/rajamantri/server/internal/database"
	"github.com/redis/go-redis/v9"
)

// Service encapsulates the Redis + DB logic for capturing room actions and
// marking rooms abandoned after a period of inactivity.
type Service struct {
	redisClient *redis.Client
	queueName   string
	batchSize   int
	flushDelay  time.Duration
	inactivity  time.Duration

	lastActivity sync.Map // map[string]time.Time, keyed by room code

	batchMu  sync.Mutex
	batch    []cache.RoomActionRecord
	ctx      context.Context
	cancelFn context.CancelFunc
}

// NewService constructs a Service around an existing Redis client, with
// tuning read from environment variables or defaults.
func NewService(rdb *redis.Client) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	batchSize := getEnvInt("HISTORIAN_BATCH_SIZE", 20)
	return &Service{
		redisClient: rdb,
		queueName:   getEnv("ACTION_QUEUE_NAME", cache.DefaultQueueName),
		batchSize:   batchSize,
		flushDelay:  time.Duration(getEnvInt("HISTORIAN_FLUSH_MS", 500)) * time.Millisecond,
		inactivity:  time.Duration(getEnvInt("ROOM_INACTIVITY_TIMEOUT_SEC", 600)) * time.Second,
		batch:       make([]cache.RoomActionRecord, 0, batchSize),
		ctx:         ctx,
		cancelFn:    cancel,
	}
}

// NewServiceFromEnv builds the Redis client itself, for the standalone binary.
func NewServiceFromEnv() *Service {
	rdb := redis.NewClient(&redis.Options{
		Addr: getEnv("REDIS_ADDR", "localhost:6379"),
	})
	return NewService(rdb)
}

// Run starts the consume loop and the inactivity sweep and blocks until Stop.
// The database must be connected before calling Run.
func (s *Service) Run() {
	go s.readQueueLoop()
	go s.inactivityLoop()

	log.Println("historian service started.")
	<-s.ctx.Done()
	s.flushBatch()
	log.Println("historian shutting down.")
}

// Stop gracefully stops the service, flushing any buffered actions.
func (s *Service) Stop() {
	s.cancelFn()
}

// readQueueLoop pops action records off the Redis list, accumulating them
// into a batch that is flushed on size or on a timer.
func (s *Service) readQueueLoop() {
	ticker := time.NewTicker(s.flushDelay)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return

		case <-ticker.C:
			s.flushBatch()

		default:
			// BLPop with a short timeout so context cancellation is noticed.
			res, err := s.redisClient.BLPop(s.ctx, 3*time.Second, s.queueName).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && s.ctx.Err() == nil {
					log.Printf("[ERROR] BLPop: %v\n", err)
				}
				continue
			}
			if len(res) < 2 {
				continue
			}

			var record cache.RoomActionRecord
			if err := json.Unmarshal([]byte(res[1]), &record); err != nil {
				log.Printf("invalid action record: %v\n", err)
				continue
			}
			s.lastActivity.Store(record.RoomCode, time.Now())
			s.appendToBatch(record)
		}
	}
}

func (s *Service) appendToBatch(record cache.RoomActionRecord) {
	s.batchMu.Lock()
	flush := false
	s.batch = append(s.batch, record)
	if len(s.batch) >= s.batchSize {
		flush = true
	}
	s.batchMu.Unlock()
	if flush {
		s.flushBatch()
	}
}

// flushBatch writes the buffered actions to the database in one transaction.
func (s *Service) flushBatch() {
	s.batchMu.Lock()
	if len(s.batch) == 0 {
		s.batchMu.Unlock()
		return
	}
	batchCopy := make([]cache.RoomActionRecord, len(s.batch))
	copy(batchCopy, s.batch)
	s.batch = s.batch[:0]
	s.batchMu.Unlock()

	ctx := context.Background()
	err := pgx.BeginTxFunc(ctx, database.DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range batchCopy {
			if err := insertRoomActionTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("insertRoomActionTx: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("[ERROR] flushBatch: %v\n", err)
	} else {
		log.Printf("Flushed %d actions to DB.\n", len(batchCopy))
	}
}

// inactivityLoop periodically marks rooms abandoned when their action stream
// has been silent past the threshold. A room that finished normally already
// has status 'completed' and is left alone.
func (s *Service) inactivityLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return

		case <-ticker.C:
			now := time.Now()
			s.lastActivity.Range(func(key, val interface{}) bool {
				code, ok1 := key.(string)
				last, ok2 := val.(time.Time)
				if ok1 && ok2 && now.Sub(last) > s.inactivity {
					s.markRoomAbandoned(code)
					s.lastActivity.Delete(code)
				}
				return true
			})
		}
	}
}

func (s *Service) markRoomAbandoned(roomCode string) {
	ctx := context.Background()
	err := pgx.BeginTxFunc(ctx, database.DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			UPDATE rooms
			SET status = 'abandoned', ended_at = now()
			WHERE code = $1 AND status = 'active'
		`
		_, e := tx.Exec(ctx, q, roomCode)
		return e
	})
	if err != nil {
		log.Printf("failed to mark room %v abandoned: %v", roomCode, err)
	} else {
		log.Printf("Marked room %v as 'abandoned' due to inactivity.", roomCode)
	}
}

// insertRoomActionTx inserts one action row and keeps the rooms table in
// step: any action implies the room is active, and a game_end action
// finalizes it.
func insertRoomActionTx(ctx context.Context, tx pgx.Tx, rec cache.RoomActionRecord) error {
	upsertRoom := `
		INSERT INTO rooms (code, status, started_at)
		VALUES ($1, 'active', now())
		ON CONFLICT (code)
		DO UPDATE SET status = 'active'
	`
	if _, err := tx.Exec(ctx, upsertRoom, rec.RoomCode); err != nil {
		return err
	}

	payload, err := json.Marshal(rec.ActionPayload)
	if err != nil {
		return err
	}
	insertAction := `
		INSERT INTO room_actions (
			room_code, action_index, actor_player_id, action_type, action_payload, recorded_at
		) VALUES ($1, $2, $3, $4, $5, to_timestamp($6::double precision / 1000))
	`
	if _, err := tx.Exec(ctx, insertAction,
		rec.RoomCode, rec.ActionIndex, rec.ActorPlayerID, rec.ActionType, payload, rec.Timestamp,
	); err != nil {
		return err
	}

	if rec.ActionType == "game_end" {
		finalize := `
			UPDATE rooms
			SET status = 'completed', ended_at = now()
			WHERE code = $1 AND status = 'active'
		`
		if _, err := tx.Exec(ctx, finalize, rec.RoomCode); err != nil {
			return err
		}
	}
	return nil
}

func getEnv(key, defVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defVal
}

func getEnvInt(key string, defVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defVal
	}
	return i
}
