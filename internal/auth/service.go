// Package auth issues and verifies caretaker session tokens. It is
// deliberately separate from the query planner's is_authorized
// membership gate: a caretaker must hold a valid session here AND be
// an authorized contact for the client in question there.
package auth

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrCaretakerNotFound = errors.New("caretaker not found")
	ErrInvalidPassword   = errors.New("invalid password")
	ErrEmailExists       = errors.New("email already exists")
	ErrInvalidToken      = errors.New("invalid token")
	ErrTokenExpired      = errors.New("token expired")
)

type Service struct {
	db        *sql.DB
	jwtSecret string
}

// Caretaker mirrors navtypes.CaretakerAccount with the password hash
// kept internal to this package.
type Caretaker struct {
	ID        string    `json:"caretaker_id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Claims is the JWT payload for a caretaker session.
type Claims struct {
	CaretakerID string `json:"caretaker_id"`
	Email       string `json:"email"`
	jwt.RegisteredClaims
}

func NewService(db *sql.DB, jwtSecret string) *Service {
	return &Service{
		db:        db,
		jwtSecret: jwtSecret,
	}
}

// Register creates a caretaker account.
func (s *Service) Register(ctx context.Context, email, password string) (*Caretaker, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM caretakers WHERE email = $1)", email).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check existing caretaker: %w", err)
	}
	if exists {
		return nil, ErrEmailExists
	}

	hashedPassword := hashPassword(password)
	caretakerID := uuid.New().String()
	now := time.Now()

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO caretakers (id, email, password_hash, created_at) VALUES ($1, $2, $3, $4)",
		caretakerID, email, hashedPassword, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert caretaker: %w", err)
	}

	return &Caretaker{ID: caretakerID, Email: email, CreatedAt: now}, nil
}

// Login verifies credentials and issues a session JWT.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	var caretakerID, storedHash string

	err := s.db.QueryRowContext(ctx,
		"SELECT id, password_hash FROM caretakers WHERE email = $1",
		email,
	).Scan(&caretakerID, &storedHash)

	if err == sql.ErrNoRows {
		return "", ErrCaretakerNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lookup caretaker: %w", err)
	}

	// Password check only happens once the email is known to exist.
	if hashPassword(password) != storedHash {
		return "", ErrInvalidPassword
	}

	claims := &Claims{
		CaretakerID: caretakerID,
		Email:       email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

// VerifyToken parses and validates a session JWT, stripping a leading
// "Bearer " prefix if present.
func (s *Service) VerifyToken(tokenString string) (*Claims, error) {
	if len(tokenString) > 7 && tokenString[:7] == "Bearer " {
		tokenString = tokenString[7:]
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func hashPassword(password string) string {
	hash := sha256.Sum256([]byte(password))
	return hex.EncodeToString(hash[:])
}
