package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"kruzhok/internal/content"
	"kruzhok/internal/models"

	"github.com/c-pro/geche"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const DefaultTokenExpiry = 24 * time.Hour

var (
	ErrUserExists   = errors.New("user already exists")
	ErrInvalidLogin = errors.New("invalid username or password")
	ErrInvalidToken = errors.New("invalid token")
)

// UserCredentials couples a user's public profile with their password
// hash. Only auth and storage ever see the hash.
type UserCredentials struct {
	models.User
	PasswordHash string
}

type SignupRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message,omitempty"`
	Token       string `json:"token,omitempty"`
	TokenExpiry int64  `json:"tokenExpiry,omitempty"`
	UserID      string `json:"userId,omitempty"`
}

type Config struct {
	Secret      string        `json:"secret"`
	TokenExpiry time.Duration `json:"tokenExpiry"`
}

func (c *Config) Validate() error {
	if c.Secret == "" {
		return errors.New("secret is required")
	}
	if c.TokenExpiry == 0 {
		c.TokenExpiry = DefaultTokenExpiry
	}
	return nil
}

// CredentialStore is the persistence surface auth needs.
type CredentialStore interface {
	FindCredentialsByUsername(username string) (UserCredentials, error)
	UpsertCredentials(creds UserCredentials) error
}

type AuthService struct {
	Config
	store CredentialStore
	// Write-through cache of credentials keyed by username.
	users *geche.Locker[string, *UserCredentials]
	// Verified token -> userID, so repeated requests skip signature checks.
	verified geche.Geche[string, string]
	now      func() time.Time
}

func NewAuthService(ctx context.Context, config Config, store CredentialStore) (*AuthService, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &AuthService{
		Config:   config,
		store:    store,
		users:    geche.NewLocker[string, *UserCredentials](geche.NewMapCache[string, *UserCredentials]()),
		verified: geche.NewMapTTLCache[string, string](ctx, config.TokenExpiry, time.Minute),
		now:      time.Now,
	}, nil
}

// Signup creates a new user with a bcrypt password hash.
func (as *AuthService) Signup(req SignupRequest) (models.User, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	if err := content.ValidateUsername(username); err != nil {
		return models.User{}, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	if len(req.Password) < 6 {
		return models.User{}, fmt.Errorf("%w: password must be at least 6 characters", models.ErrValidation)
	}
	name := strings.TrimSpace(content.Sanitize(req.Name))
	if name == "" {
		name = username
	}

	tx := as.users.Lock()
	defer tx.Unlock()

	if _, err := tx.Get(username); err == nil {
		return models.User{}, ErrUserExists
	}
	if creds, err := as.store.FindCredentialsByUsername(username); err == nil {
		tx.Set(username, &creds)
		return models.User{}, ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	creds := &UserCredentials{
		User: models.User{
			ID:          uuid.NewString(),
			UserName:    username,
			DisplayName: name,
			Email:       strings.ToLower(strings.TrimSpace(req.Email)),
			Presence:    models.Presence{LastSeen: as.now().Unix()},
		},
		PasswordHash: string(hash),
	}
	if err := as.store.UpsertCredentials(*creds); err != nil {
		return models.User{}, fmt.Errorf("failed to store credentials: %w", err)
	}
	tx.Set(username, creds)

	return creds.User, nil
}

// Login verifies the password and issues a signed token.
func (as *AuthService) Login(req LoginRequest) (LoginResponse, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))

	tx := as.users.Lock()
	creds, err := tx.Get(username)
	if err != nil {
		if fromStore, serr := as.store.FindCredentialsByUsername(username); serr == nil {
			creds = &fromStore
			tx.Set(username, creds)
			err = nil
		}
	}
	tx.Unlock()
	if err != nil {
		return LoginResponse{Message: ErrInvalidLogin.Error()}, ErrInvalidLogin
	}

	if err := bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(req.Password)); err != nil {
		return LoginResponse{Message: ErrInvalidLogin.Error()}, ErrInvalidLogin
	}

	expiry := as.now().Add(as.TokenExpiry)
	token, err := as.issueToken(creds.ID, expiry)
	if err != nil {
		slog.Error("token issue failed", "user_id", creds.ID, "error", err)
		return LoginResponse{Message: "internal error"}, err
	}

	return LoginResponse{
		Success:     true,
		Token:       token,
		TokenExpiry: expiry.Unix(),
		UserID:      creds.ID,
	}, nil
}

// VerifyToken resolves a token to the user ID it was issued for.
func (as *AuthService) VerifyToken(token string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}
	if userID, err := as.verified.Get(token); err == nil {
		return userID, nil
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return []byte(as.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	userID, err := parsed.Claims.GetSubject()
	if err != nil || userID == "" {
		return "", ErrInvalidToken
	}

	as.verified.Set(token, userID)
	return userID, nil
}

func (as *AuthService) issueToken(userID string, expiry time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(as.now()),
		ExpiresAt: jwt.NewNumericDate(expiry),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(as.Secret))
}
