package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/jordanhubbard/promptvault/pkg/config"
)

// ErrInvalidCredentials is returned for any login failure. The reason
// (unknown user vs wrong password) is deliberately not distinguished.
var ErrInvalidCredentials = errors.New("invalid username or password")

// Claims are the JWT claims issued on login.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// LoginResponse is returned from a successful login.
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
	Username  string `json:"username"`
}

// Manager validates logins and bearer tokens. Users and API keys come
// from configuration; there is no user CRUD surface.
type Manager struct {
	jwtSecret string
	tokenTTL  time.Duration
	users     map[string]string // username -> bcrypt hash
	apiKeys   []string
}

// NewManager creates an auth manager from security configuration.
func NewManager(cfg config.SecurityConfig) *Manager {
	secret := cfg.JWTSecret
	if secret == "" {
		secret = generateRandomSecret(32)
		log.Printf("Generated random JWT secret for session (not persistent)")
	}

	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	users := make(map[string]string, len(cfg.Users))
	for _, u := range cfg.Users {
		users[u.Username] = u.PasswordHash
	}

	return &Manager{
		jwtSecret: secret,
		tokenTTL:  ttl,
		users:     users,
		apiKeys:   cfg.APIKeys,
	}
}

// Login authenticates a user and returns a signed token.
func (m *Manager) Login(username, password string) (*LoginResponse, error) {
	hash, ok := m.users[username]
	if !ok {
		// Burn a comparison so missing users cost the same as bad passwords.
		bcrypt.CompareHashAndPassword([]byte("$2a$10$0000000000000000000000000000000000000000000000000000"), []byte(password))
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := m.GenerateToken(username)
	if err != nil {
		return nil, err
	}

	return &LoginResponse{
		Token:     token,
		ExpiresIn: int64(m.tokenTTL.Seconds()),
		Username:  username,
	}, nil
}

// GenerateToken creates a JWT for a username.
func (m *Manager) GenerateToken(username string) (string, error) {
	now := time.Now()
	claims := &Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "promptvault",
			Subject:   username,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.jwtSecret))
}

// ValidateToken parses and verifies a JWT, returning its claims.
func (m *Manager) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(m.jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	return claims, nil
}

// ValidateAPIKey reports whether the key matches a configured API key.
func (m *Manager) ValidateAPIKey(key string) bool {
	if key == "" {
		return false
	}
	for _, k := range m.apiKeys {
		if subtle.ConstantTimeCompare([]byte(k), []byte(key)) == 1 {
			return true
		}
	}
	return false
}

// HasUsers reports whether any login is configured.
func (m *Manager) HasUsers() bool { return len(m.users) > 0 }

// HashPassword produces a bcrypt hash suitable for UserConfig.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func generateRandomSecret(length int) string {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		panic(err)
	}
	return fmt.Sprintf("%x", bytes)
}
