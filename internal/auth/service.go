package auth

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"
)

// Service composes the directory store, the credential verifier, the login
// limiter and the token issuer into the authentication entry points used by
// the transport layer.
type Service struct {
	store   Store
	tokens  *TokenService
	limiter *LoginLimiter
}

// NewService wires the authentication service. All collaborators are
// required.
func NewService(store Store, tokens *TokenService, limiter *LoginLimiter) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	if tokens == nil {
		return nil, errors.New("auth: token service is required")
	}
	if limiter == nil {
		return nil, errors.New("auth: login limiter is required")
	}
	return &Service{store: store, tokens: tokens, limiter: limiter}, nil
}

// LoginResult is a successful credential exchange.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      User
}

// Login authenticates an email/password pair. The rate limiter is consulted
// before any credential work: a limited key is rejected without a directory
// lookup or a hash comparison, even when the password is correct. Unknown
// email and wrong password both record a failure and surface the same
// ErrBadCredentials so accounts cannot be enumerated.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if s.limiter.IsLimited(email) {
		return LoginResult{}, ErrRateLimited
	}
	user, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.limiter.RecordFailure(email)
			return LoginResult{}, ErrBadCredentials
		}
		return LoginResult{}, err
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		s.limiter.RecordFailure(email)
		return LoginResult{}, ErrBadCredentials
	}
	s.limiter.Reset(email)

	token, expiresAt, err := s.tokens.Issue(strconv.FormatInt(user.ID, 10), 0)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// Authenticate resolves an optional bearer token to a directory identity.
// An absent token is anonymous (nil, nil). A bad signature, an unparsable
// payload, an expired token or a subject no longer present in the directory
// all collapse to ErrInvalidToken; the transport maps every variant to the
// same generic credentials failure.
func (s *Service) Authenticate(ctx context.Context, token string) (*User, error) {
	if strings.TrimSpace(token) == "" {
		return nil, nil
	}
	subject, err := s.tokens.Verify(token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	id, err := strconv.ParseInt(subject, 10, 64)
	if err != nil {
		return nil, ErrInvalidToken
	}
	user, err := s.store.FindUser(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return &user, nil
}

// Limiter exposes the login limiter, e.g. for background sweeping.
func (s *Service) Limiter() *LoginLimiter {
	return s.limiter
}
