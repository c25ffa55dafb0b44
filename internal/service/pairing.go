package service

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const defaultTokenTTL = time.Hour

// Domain errors for pairing flows.
var (
	ErrInvalidPIN   = errors.New("invalid pin")
	ErrInvalidToken = errors.New("invalid token")
)

// PairingService lets a phone or browser pair with the config server by PIN
// and then authenticate with a short-lived bearer token.
type PairingService struct {
	pinHash  []byte
	secret   []byte
	ttl      time.Duration
	deviceID func() string
	now      func() time.Time
}

// NewPairingService hashes pin once at startup. An empty secret is replaced by
// a random per-boot key, which invalidates tokens on every restart.
func NewPairingService(pin, secret string, ttl time.Duration, deviceID func() string) (*PairingService, error) {
	hash, err := hashPIN(pin)
	if err != nil {
		return nil, err
	}
	key := []byte(secret)
	if len(key) == 0 {
		if key, err = randomKey(); err != nil {
			return nil, err
		}
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &PairingService{
		pinHash:  hash,
		secret:   key,
		ttl:      ttl,
		deviceID: deviceID,
		now:      time.Now,
	}, nil
}

// Claims defines JWT claims; the subject is the device id.
type Claims struct {
	jwt.RegisteredClaims
	Client string `json:"client,omitempty"`
}

// Pair validates the PIN and returns a signed token for client.
func (s *PairingService) Pair(pin, client string) (string, error) {
	if err := bcrypt.CompareHashAndPassword(s.pinHash, []byte(pin)); err != nil {
		return "", ErrInvalidPIN
	}
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.deviceID(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Client: strings.TrimSpace(client),
	})
	return token.SignedString(s.secret)
}

// ParseToken verifies accessToken and returns the paired client name.
// Tokens issued for another device are rejected.
func (s *PairingService) ParseToken(accessToken string) (string, error) {
	token, err := jwt.ParseWithClaims(accessToken, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject != s.deviceID() {
		return "", ErrInvalidToken
	}
	return claims.Client, nil
}

func hashPIN(pin string) ([]byte, error) {
	if strings.TrimSpace(pin) == "" {
		return nil, errors.New("pin is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash pin: %w", err)
	}
	return hash, nil
}

func randomKey() ([]byte, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generate signing key: %w", err)
	}
	return []byte(hex.EncodeToString(buf)), nil
}
