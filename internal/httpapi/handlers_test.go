package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"homegrid.io/internal/auth"
	"homegrid.io/internal/listing"
	"homegrid.io/internal/stream"
)

// fakeStore backs both the auth and listing stores for handler tests.
type fakeStore struct {
	mu       sync.Mutex
	users    map[int64]auth.User
	props    map[int64]listing.Property
	nextUser int64
	nextProp int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    make(map[int64]auth.User),
		props:    make(map[int64]listing.Property),
		nextUser: 1,
		nextProp: 1,
	}
}

func (f *fakeStore) addUser(t *testing.T, email, password, name string, role auth.Role) auth.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u := auth.User{
		ID: f.nextUser, Email: email, Name: name, Role: role,
		PasswordHash: hash, CreatedAt: time.Now().UTC(),
	}
	f.users[u.ID] = u
	f.nextUser++
	return u
}

func (f *fakeStore) FindUser(_ context.Context, id int64) (auth.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return auth.User{}, auth.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) FindUserByEmail(_ context.Context, email string) (auth.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return auth.User{}, auth.ErrNotFound
}

func (f *fakeStore) CreateUser(_ context.Context, u auth.User) (auth.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return auth.User{}, auth.ErrConflict
		}
	}
	u.ID = f.nextUser
	u.CreatedAt = time.Now().UTC()
	f.users[u.ID] = u
	f.nextUser++
	return u, nil
}

func (f *fakeStore) UpdateUser(_ context.Context, id int64, upd auth.UserUpdate) (auth.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return auth.User{}, auth.ErrNotFound
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
	f.users[id] = u
	return u, nil
}

func (f *fakeStore) DeleteUser(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return auth.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeStore) ListAgents(_ context.Context) ([]auth.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []auth.User
	for _, u := range f.users {
		if u.Role == auth.RoleAgent {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (f *fakeStore) CreateProperty(_ context.Context, p listing.Property) (listing.Property, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p.ID = f.nextProp
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	f.props[p.ID] = p
	f.nextProp++
	return p, nil
}

func (f *fakeStore) GetProperty(_ context.Context, id int64) (listing.Property, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.props[id]
	if !ok {
		return listing.Property{}, listing.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) UpdateProperty(_ context.Context, id int64, upd listing.PropertyUpdate) (listing.Property, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.props[id]
	if !ok {
		return listing.Property{}, listing.ErrNotFound
	}
	if upd.Title != nil {
		p.Title = *upd.Title
	}
	if upd.Price != nil {
		p.Price = *upd.Price
	}
	if upd.City != nil {
		p.City = *upd.City
	}
	if upd.Status != nil {
		p.Status = *upd.Status
	}
	p.UpdatedAt = time.Now().UTC()
	f.props[id] = p
	return p, nil
}

func (f *fakeStore) DeleteProperty(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.props[id]; !ok {
		return listing.ErrNotFound
	}
	delete(f.props, id)
	return nil
}

func (f *fakeStore) ListProperties(_ context.Context, flt listing.Filter) ([]listing.Property, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []listing.Property
	for _, p := range f.props {
		if flt.OwnerID != nil && p.OwnerID != *flt.OwnerID {
			continue
		}
		if flt.Status != nil && p.Status != *flt.Status {
			continue
		}
		if flt.City != "" && p.City != flt.City {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) AppendImages(_ context.Context, id int64, images []string) (listing.Property, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.props[id]
	if !ok {
		return listing.Property{}, listing.ErrNotFound
	}
	p.Images = append(p.Images, images...)
	f.props[id] = p
	return p, nil
}

type testEnv struct {
	api   *API
	store *fakeStore
	authS *auth.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newFakeStore()
	tokens, err := auth.NewTokenService("handler-test-secret", 0)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	limiter := auth.NewLoginLimiter(auth.DefaultMaxAttempts, time.Minute)
	authSvc, err := auth.NewService(store, tokens, limiter)
	if err != nil {
		t.Fatalf("auth.NewService: %v", err)
	}
	dir, err := auth.NewDirectory(store)
	if err != nil {
		t.Fatalf("NewDirectory: %v", err)
	}
	listings, err := listing.NewService(store)
	if err != nil {
		t.Fatalf("listing.NewService: %v", err)
	}
	api := New(Config{
		Auth:      authSvc,
		Directory: dir,
		Listings:  listings,
		Stream:    stream.New(),
		UploadDir: t.TempDir(),
		Version:   "test",
	})
	return &testEnv{api: api, store: store, authS: authSvc}
}

func (e *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()
	res, err := e.authS.Login(context.Background(), email, password)
	if err != nil {
		t.Fatalf("login %s: %v", email, err)
	}
	return res.Token
}

func doJSON(t *testing.T, h http.Handler, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	var body map[string]any
	if rr.Body.Len() > 0 {
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			body = nil
		}
	}
	return rr, body
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr, body := doJSON(t, env.api.mux, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if body["status"] != "ok" || body["service"] != "homegrid-api" {
		t.Fatalf("body = %v", body)
	}
}

func TestReadyWithoutDB(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rr, body := doJSON(t, env.api.mux, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if body["status"] != "ready" {
		t.Fatalf("body = %v", body)
	}
}

func TestInfoReportsVersion(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/info", nil)
	rr, body := doJSON(t, env.api.mux, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if body["version"] != "test" {
		t.Fatalf("body = %v", body)
	}
}

func TestUnknownPathIs404(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rr := httptest.NewRecorder()
	env.api.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestMethodNotAllowedSetsAllowHeader(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/auth/login", nil)
	rr, _ := doJSON(t, env.api.mux, req)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", rr.Code)
	}
	if rr.Header().Get("Allow") != http.MethodPost {
		t.Fatalf("Allow = %q", rr.Header().Get("Allow"))
	}
}
