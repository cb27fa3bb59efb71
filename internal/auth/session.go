// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// signingKeys holds the ed25519 pair used to sign and verify seat tokens.
// A token's "sub" claim is the player id the holder is entitled to act as.
type signingKeys struct {
	private ed25519.PrivateKey
	public  ed25519.PublicKey
}

var (
	keys signingKeys

	// tokenTTL is how long a seat token stays valid; zero means no expiry.
	tokenTTL time.Duration
)

// Init prepares the session layer. If AUTH_PRIVATE_KEY_FILE and
// AUTH_PUBLIC_KEY_FILE are both set, the pair is loaded from disk so seat
// tokens survive restarts; otherwise a fresh pair is generated, which
// invalidates all outstanding tokens on restart. Seats are ephemeral, so the
// generated pair is the normal mode.
func Init() {
	privPath := os.Getenv("AUTH_PRIVATE_KEY_FILE")
	pubPath := os.Getenv("AUTH_PUBLIC_KEY_FILE")

	var err error
	if privPath != "" && pubPath != "" {
		keys, err = loadKeys(privPath, pubPath)
	} else {
		keys.public, keys.private, err = ed25519.GenerateKey(nil)
	}
	if err != nil {
		fmt.Printf("failed to initialize session keys: %v\n", err)
		os.Exit(1)
	}

	tokenTTL = parseTokenTTL(os.Getenv("TOKEN_EXPIRE_TIME"))
}

func loadKeys(privatePath, publicPath string) (signingKeys, error) {
	privateKeyData, err := os.ReadFile(privatePath)
	if err != nil {
		return signingKeys{}, fmt.Errorf("failed to read private key file: %w", err)
	}
	publicKeyData, err := os.ReadFile(publicPath)
	if err != nil {
		return signingKeys{}, fmt.Errorf("failed to read public key file: %w", err)
	}
	return signingKeys{
		private: ed25519.PrivateKey(privateKeyData),
		public:  ed25519.PublicKey(publicKeyData),
	}, nil
}

// parseTokenTTL interprets the TOKEN_EXPIRE_TIME env value as a Go duration.
// Empty, "0" and "never" all mean no expiry; a malformed value is fatal
// rather than silently issuing eternal tokens.
func parseTokenTTL(raw string) time.Duration {
	if raw == "" || raw == "0" || raw == "never" {
		return 0
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		fmt.Printf("failed to parse token expire time: %v\n", err)
		os.Exit(1)
	}
	return d
}

// CreateJWT creates a signed session token with "sub" = playerID.
func CreateJWT(playerID string) (string, error) {
	claims := jwt.MapClaims{
		"sub": playerID,
	}
	if tokenTTL > 0 {
		claims["exp"] = time.Now().Add(tokenTTL).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(keys.private)
}

// AuthenticateJWT verifies a session token and returns the "sub" player id.
func AuthenticateJWT(tokenString string) (string, error) {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return keys.public, nil
	})

	if err != nil {
		return "", fmt.Errorf("jwt parse error: %w", err)
	}
	if !t.Valid {
		return "", fmt.Errorf("invalid token")
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid jwt claims")
	}

	playerID, ok := claims["sub"].(string)
	if !ok {
		return "", fmt.Errorf("missing sub in jwt")
	}

	return playerID, nil
}
