// Package auth verifies user credentials and issues and verifies the signed
// bearer tokens that identify a caller on every request.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials is returned for an unknown username and for a
	// wrong password alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized is returned for any token that cannot be trusted.
	ErrUnauthorized = errors.New("unauthorized")
)

// DefaultTokenTTL is the token lifetime when none is configured.
const DefaultTokenTTL = 24 * time.Hour

// Principal is the authenticated caller.
type Principal struct {
	UserID            int64  `json:"user_id"`
	Username          string `json:"username"`
	Email             string `json:"email"`
	Onboarding        bool   `json:"onboarding"`
	SelectedVehicleID *int64 `json:"selected_vehicle_id"`
}

// Credential is the stored login record for a user.
type Credential struct {
	Principal
	PasswordHash string
}

// CredentialStore is the persistence boundary the service reads from.
// Both lookups return nil, nil when the account does not exist.
type CredentialStore interface {
	CredentialByUsername(ctx context.Context, username string) (*Credential, error)
	AccountByID(ctx context.Context, userID int64) (*Principal, error)
}

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}

// BcryptHasher implements PasswordHasher with bcrypt.
type BcryptHasher struct{ Cost int }

func (b BcryptHasher) Hash(password string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (b BcryptHasher) Verify(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Claims is the token payload. iat is carried in epoch milliseconds.
type Claims struct {
	UserID            int64            `json:"user_id"`
	Username          string           `json:"username"`
	Email             string           `json:"email"`
	Onboarding        bool             `json:"onboarding"`
	SelectedVehicleID *int64           `json:"selected_vehicle_id"`
	IssuedAt          int64            `json:"iat"`
	ExpiresAt         *jwt.NumericDate `json:"exp"`
}

func (c *Claims) GetExpirationTime() (*jwt.NumericDate, error) { return c.ExpiresAt, nil }
func (c *Claims) GetNotBefore() (*jwt.NumericDate, error)      { return nil, nil }
func (c *Claims) GetIssuer() (string, error)                   { return "", nil }
func (c *Claims) GetAudience() (jwt.ClaimStrings, error)       { return nil, nil }
func (c *Claims) GetSubject() (string, error) {
	return fmt.Sprintf("%d", c.UserID), nil
}
func (c *Claims) GetIssuedAt() (*jwt.NumericDate, error) {
	if c.IssuedAt == 0 {
		return nil, nil
	}
	return jwt.NewNumericDate(time.UnixMilli(c.IssuedAt)), nil
}

// Options configures a Service.
type Options struct {
	Secret []byte
	TTL    time.Duration
	Hasher PasswordHasher
	Logger *zap.Logger
	Now    func() time.Time
}

// Service implements credential verification and token issuance.
type Service struct {
	store  CredentialStore
	hasher PasswordHasher
	secret []byte
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
	parser *jwt.Parser
	// decoy is checked for unknown usernames so that both login failures
	// cost one hash comparison.
	decoy string
}

func NewService(store CredentialStore, opts Options) *Service {
	s := &Service{
		store:  store,
		hasher: opts.Hasher,
		secret: opts.Secret,
		ttl:    opts.TTL,
		logger: opts.Logger,
		now:    opts.Now,
	}
	if s.hasher == nil {
		s.hasher = BcryptHasher{}
	}
	if s.ttl <= 0 {
		s.ttl = DefaultTokenTTL
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if h, err := s.hasher.Hash("decoy-password-for-unknown-users"); err == nil {
		s.decoy = h
	} else {
		s.logger.Warn("could not prepare decoy hash", zap.Error(err))
	}
	s.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	return s
}

// HashPassword hashes a plaintext password for storage.
func (s *Service) HashPassword(password string) (string, error) {
	return s.hasher.Hash(password)
}

// VerifyCredentials checks a username/password pair and returns the account.
func (s *Service) VerifyCredentials(ctx context.Context, username, password string) (*Principal, error) {
	cred, err := s.store.CredentialByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("looking up credential: %w", err)
	}
	if cred == nil {
		s.hasher.Verify(s.decoy, password)
		s.logger.Debug("login rejected", zap.String("reason", "unknown user"))
		return nil, ErrInvalidCredentials
	}
	if !s.hasher.Verify(cred.PasswordHash, password) {
		s.logger.Debug("login rejected", zap.String("reason", "password mismatch"), zap.Int64("user_id", cred.UserID))
		return nil, ErrInvalidCredentials
	}
	p := cred.Principal
	return &p, nil
}

// IssueToken signs a token for p that expires after the configured TTL.
func (s *Service) IssueToken(p *Principal) (string, error) {
	now := s.now()
	claims := &Claims{
		UserID:            p.UserID,
		Username:          p.Username,
		Email:             p.Email,
		Onboarding:        p.Onboarding,
		SelectedVehicleID: p.SelectedVehicleID,
		IssuedAt:          now.UnixMilli(),
		ExpiresAt:         jwt.NewNumericDate(now.Add(s.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// VerifyToken checks signature and expiry, then confirms the account still
// exists under the same username and returns its current state.
func (s *Service) VerifyToken(ctx context.Context, tokenStr string) (*Principal, error) {
	tokenStr = strings.TrimSpace(tokenStr)
	if tokenStr == "" {
		return nil, ErrUnauthorized
	}

	claims := &Claims{}
	token, err := s.parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		s.logger.Debug("token rejected", zap.Error(err))
		return nil, ErrUnauthorized
	}

	account, err := s.store.AccountByID(ctx, claims.UserID)
	if err != nil {
		s.logger.Warn("account lookup failed during token verification", zap.Error(err))
		return nil, ErrUnauthorized
	}
	if account == nil || account.Username != claims.Username {
		s.logger.Debug("token rejected", zap.String("reason", "account gone"), zap.Int64("user_id", claims.UserID))
		return nil, ErrUnauthorized
	}
	return account, nil
}
