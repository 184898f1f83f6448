package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

// memStore is an in-memory Store used across the package tests. It counts
// email lookups so tests can assert that rate-limited attempts never reach
// the credential path.
type memStore struct {
	users        map[int64]User
	nextID       int64
	emailLookups int
}

func newMemStore() *memStore {
	return &memStore{users: make(map[int64]User), nextID: 1}
}

func (m *memStore) addUser(email, password, name string, role Role) User {
	hash, err := HashPassword(password)
	if err != nil {
		panic(err)
	}
	u := User{
		ID:           m.nextID,
		Email:        email,
		Name:         name,
		Role:         role,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	m.users[u.ID] = u
	m.nextID++
	return u
}

func (m *memStore) FindUser(_ context.Context, id int64) (User, error) {
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (m *memStore) FindUserByEmail(_ context.Context, email string) (User, error) {
	m.emailLookups++
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (m *memStore) CreateUser(_ context.Context, u User) (User, error) {
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return User{}, ErrConflict
		}
	}
	u.ID = m.nextID
	u.CreatedAt = time.Now().UTC()
	m.users[u.ID] = u
	m.nextID++
	return u, nil
}

func (m *memStore) UpdateUser(_ context.Context, id int64, upd UserUpdate) (User, error) {
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Phone != nil {
		u.Phone = *upd.Phone
	}
	if upd.Password != nil {
		u.PasswordHash = *upd.Password
	}
	m.users[id] = u
	return u, nil
}

func (m *memStore) DeleteUser(_ context.Context, id int64) error {
	if _, ok := m.users[id]; !ok {
		return ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *memStore) ListAgents(_ context.Context) ([]User, error) {
	var agents []User
	for _, u := range m.users {
		if u.Role == RoleAgent {
			agents = append(agents, u)
		}
	}
	return agents, nil
}

func newTestService(t *testing.T, store Store) *Service {
	t.Helper()
	tokens, err := NewTokenService("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	svc, err := NewService(store, tokens, NewLoginLimiter(5, time.Minute))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestLoginSuccessIssuesValidToken(t *testing.T) {
	store := newMemStore()
	agent := store.addUser("agent@example.com", "hunter22", "Agent", RoleAgent)
	svc := newTestService(t, store)

	res, err := svc.Login(context.Background(), "Agent@Example.com", "hunter22")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.User.ID != agent.ID {
		t.Fatalf("user id = %d, want %d", res.User.ID, agent.ID)
	}

	ident, err := svc.Authenticate(context.Background(), res.Token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if ident == nil || ident.ID != agent.ID {
		t.Fatalf("authenticated identity = %+v", ident)
	}
}

func TestLoginBadCredentialsIndistinguishable(t *testing.T) {
	store := newMemStore()
	store.addUser("agent@example.com", "hunter22", "Agent", RoleAgent)
	svc := newTestService(t, store)

	_, err1 := svc.Login(context.Background(), "agent@example.com", "nope")
	_, err2 := svc.Login(context.Background(), "unknown@example.com", "nope")
	if !errors.Is(err1, ErrBadCredentials) || !errors.Is(err2, ErrBadCredentials) {
		t.Fatalf("wrong password %v, unknown email %v; both must be ErrBadCredentials", err1, err2)
	}
	if svc.limiter.Attempts("agent@example.com") == 0 {
		t.Fatalf("failed attempt not recorded")
	}
	if svc.limiter.Attempts("unknown@example.com") == 0 {
		t.Fatalf("unknown-email attempt not recorded")
	}
}

func TestLoginRateLimitBlocksCorrectPassword(t *testing.T) {
	store := newMemStore()
	store.addUser("agent@example.com", "hunter22", "Agent", RoleAgent)
	svc := newTestService(t, store)

	for i := 0; i < 5; i++ {
		if _, err := svc.Login(context.Background(), "agent@example.com", "wrong"); !errors.Is(err, ErrBadCredentials) {
			t.Fatalf("attempt %d: %v", i, err)
		}
	}

	lookups := store.emailLookups
	_, err := svc.Login(context.Background(), "agent@example.com", "hunter22")
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("6th attempt with correct password = %v, want ErrRateLimited", err)
	}
	if store.emailLookups != lookups {
		t.Fatalf("rate-limited attempt reached the directory (%d lookups, had %d)", store.emailLookups, lookups)
	}
}

func TestLoginResetOnSuccess(t *testing.T) {
	store := newMemStore()
	store.addUser("agent@example.com", "hunter22", "Agent", RoleAgent)
	svc := newTestService(t, store)

	for i := 0; i < 4; i++ {
		_, _ = svc.Login(context.Background(), "agent@example.com", "wrong")
	}
	if _, err := svc.Login(context.Background(), "agent@example.com", "hunter22"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if got := svc.limiter.Attempts("agent@example.com"); got != 0 {
		t.Fatalf("attempts after success = %d, want 0", got)
	}
}

func TestAuthenticateAnonymousAndInvalid(t *testing.T) {
	store := newMemStore()
	agent := store.addUser("agent@example.com", "hunter22", "Agent", RoleAgent)
	svc := newTestService(t, store)

	ident, err := svc.Authenticate(context.Background(), "")
	if err != nil || ident != nil {
		t.Fatalf("empty token: ident=%v err=%v, want anonymous", ident, err)
	}

	if _, err := svc.Authenticate(context.Background(), "garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("garbage token = %v, want ErrInvalidToken", err)
	}

	// A valid token whose subject has been deleted is indistinguishable
	// from an invalid one.
	res, err := svc.Login(context.Background(), "agent@example.com", "hunter22")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := store.DeleteUser(context.Background(), agent.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), res.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("deleted subject = %v, want ErrInvalidToken", err)
	}
}

func TestAuthenticateExpiredToken(t *testing.T) {
	store := newMemStore()
	store.addUser("agent@example.com", "hunter22", "Agent", RoleAgent)

	tokens, err := NewTokenService("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	issued := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	now := issued
	tokens.now = func() time.Time { return now }

	svc, err := NewService(store, tokens, NewLoginLimiter(5, time.Minute))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	res, err := svc.Login(context.Background(), "agent@example.com", "hunter22")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), res.Token); err != nil {
		t.Fatalf("Authenticate before expiry: %v", err)
	}

	now = issued.Add(25 * time.Hour)
	if _, err := svc.Authenticate(context.Background(), res.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Authenticate after expiry = %v, want ErrInvalidToken", err)
	}
}
