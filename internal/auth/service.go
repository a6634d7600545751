package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"github.com/wirebird/crm/internal"
)

// Service is the session/auth gate. It is the single writer of session state:
// Authenticate and Logout are the only operations that touch the durable
// store, and a second login attempted while one is in flight is rejected
// rather than interleaved.
type Service struct {
	userRepo       RepositoryAPI
	tokenGenerator TokenGeneratorAPI
	store          SessionStore
	logger         *slog.Logger
	bcryptCost     int

	mu       sync.Mutex
	state    GateState
	inFlight bool
}

func NewService(userRepo RepositoryAPI, tokenGen TokenGeneratorAPI, store SessionStore, logger *slog.Logger, bcryptCost int) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		userRepo:       userRepo,
		tokenGenerator: tokenGen,
		store:          store,
		logger:         logger,
		bcryptCost:     bcryptCost,
		state:          Unauthenticated,
	}
}

// State reports the gate's current lifecycle state.
func (s *Service) State() GateState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Service) beginLogin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return internal.ErrLoginInFlight
	}
	s.inFlight = true
	s.state = Authenticating
	return nil
}

func (s *Service) endLogin(success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
	if success {
		s.state = Authenticated
	} else {
		s.state = Unauthenticated
	}
}

// Authenticate validates credentials, creates a session in the durable store
// and returns tokens. Bad credentials come back as ErrAuthenticationFailed,
// never a panic; the gate does not retry.
func (s *Service) Authenticate(ctx context.Context, dto LoginDTO) (*Session, AuthTokens, error) {
	if err := dto.Validate(); err != nil {
		return nil, AuthTokens{}, err
	}

	if err := s.beginLogin(); err != nil {
		return nil, AuthTokens{}, err
	}

	session, tokens, err := s.authenticate(ctx, dto)
	s.endLogin(err == nil)
	return session, tokens, err
}

func (s *Service) authenticate(ctx context.Context, dto LoginDTO) (*Session, AuthTokens, error) {
	storedHash, userID, err := s.userRepo.GetPasswordForEmail(dto.Email)
	if err != nil {
		s.logger.Warn("login failed: user lookup", "email", dto.Email)
		return nil, AuthTokens{}, internal.ErrAuthenticationFailed
	}

	if err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(dto.Password)); err != nil {
		s.logger.Warn("login failed: password mismatch", "user_id", userID)
		return nil, AuthTokens{}, internal.ErrAuthenticationFailed
	}

	user, err := s.userRepo.GetUserByID(userID)
	if err != nil {
		return nil, AuthTokens{}, internal.ErrAuthenticationFailed
	}
	if !user.IsActive() {
		return nil, AuthTokens{}, internal.ErrUserInactive
	}

	session := &Session{
		ID:        uuid.NewString(),
		User:      *user,
		CreatedAt: time.Now(),
	}
	if err := s.store.Save(ctx, session); err != nil {
		s.logger.Error("failed to persist session", "error", err, "user_id", userID)
		return nil, AuthTokens{}, internal.NewInternalError("failed to persist session", err)
	}

	accessToken, err := s.tokenGenerator.GenerateAccessToken(user.ID, user.Email, session.ID)
	if err != nil {
		return nil, AuthTokens{}, err
	}
	refreshToken, err := s.tokenGenerator.GenerateRefreshToken(user.ID, user.Email, session.ID)
	if err != nil {
		return nil, AuthTokens{}, err
	}

	s.logger.Info("user authenticated",
		"user_id", user.ID,
		"role", user.Role,
		"session_id", session.ID)

	return session, AuthTokens{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// Hydrate loads the user for a session id from the durable store. A corrupt
// stored value resets the session to unauthenticated instead of failing: the
// bad key is deleted and (nil, nil) is returned.
func (s *Service) Hydrate(ctx context.Context, sessionID string) (*User, error) {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionCorrupt) {
			s.logger.Warn("corrupt session value, resetting to unauthenticated", "session_id", sessionID)
			_ = s.store.Delete(ctx, sessionID)
			return nil, nil
		}
		if errors.Is(err, ErrSessionMissing) {
			return nil, nil
		}
		return nil, err
	}
	return &session.User, nil
}

// Logout destroys the session and clears durable storage.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if err := s.store.Delete(ctx, sessionID); err != nil {
		return err
	}
	s.mu.Lock()
	s.state = Unauthenticated
	s.mu.Unlock()
	s.logger.Info("session destroyed", "session_id", sessionID)
	return nil
}

// RefreshTokens validates a refresh token and issues a new pair for the same
// session. The session must still exist in the durable store.
func (s *Service) RefreshTokens(ctx context.Context, refreshToken string) (AuthTokens, error) {
	claims, err := s.tokenGenerator.ValidateToken(refreshToken)
	if err != nil {
		return AuthTokens{}, err
	}

	user, err := s.Hydrate(ctx, claims.SessionID)
	if err != nil {
		return AuthTokens{}, err
	}
	if user == nil {
		return AuthTokens{}, internal.ErrSessionNotFound
	}

	accessToken, err := s.tokenGenerator.GenerateAccessToken(user.ID, user.Email, claims.SessionID)
	if err != nil {
		return AuthTokens{}, err
	}
	newRefreshToken, err := s.tokenGenerator.GenerateRefreshToken(user.ID, user.Email, claims.SessionID)
	if err != nil {
		return AuthTokens{}, err
	}

	return AuthTokens{AccessToken: accessToken, RefreshToken: newRefreshToken}, nil
}

// ValidateAccessToken validates access token and returns claims
func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.tokenGenerator.ValidateToken(tokenString)
}

// HashPassword creates a bcrypt hash of the password
func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// JWTTokenGenerator issues HS256 access and refresh tokens.
type JWTTokenGenerator struct {
	AccessTokenSecret  []byte
	RefreshTokenSecret []byte
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
}

func NewJWTTokenGenerator(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *JWTTokenGenerator {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 24 * 7 * time.Hour
	}
	return &JWTTokenGenerator{
		AccessTokenSecret:  []byte(accessSecret),
		RefreshTokenSecret: []byte(refreshSecret),
		AccessTokenTTL:     accessTTL,
		RefreshTokenTTL:    refreshTTL,
	}
}

func (j *JWTTokenGenerator) GenerateAccessToken(userID int64, email, sessionID string) (string, error) {
	return j.signed(userID, email, sessionID, j.AccessTokenTTL, j.AccessTokenSecret)
}

func (j *JWTTokenGenerator) GenerateRefreshToken(userID int64, email, sessionID string) (string, error) {
	return j.signed(userID, email, sessionID, j.RefreshTokenTTL, j.RefreshTokenSecret)
}

func (j *JWTTokenGenerator) signed(userID int64, email, sessionID string, ttl time.Duration, secret []byte) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:    userID,
		Email:     email,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   fmt.Sprintf("%d", userID),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ValidateToken validates a JWT token and returns claims
func (j *JWTTokenGenerator) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		// Refresh tokens are recognizable by their longer lifetime.
		if claims, ok := token.Claims.(*Claims); ok {
			if claims.ExpiresAt != nil && time.Until(claims.ExpiresAt.Time) > j.AccessTokenTTL {
				return j.RefreshTokenSecret, nil
			}
		}
		return j.AccessTokenSecret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, internal.ErrTokenExpired
		}
		return nil, internal.ErrInvalidToken
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, internal.ErrInvalidToken
}
