package authflow

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	testSubject  = "user-1"
	testEmail    = "alice@example.com"
	testPassword = "correct-password-123"
)

// fakeAPI is an in-memory stand-in for the remote API. The server is the
// authority on token validity: tokens are tracked by value, so tests can
// revoke or "expire" a credential without waiting for wall-clock time.
type fakeAPI struct {
	t      *testing.T
	secret []byte
	server *httptest.Server

	mu sync.Mutex

	// behavior overrides, guarded by mu
	accessTTL     time.Duration
	rotateRefresh bool
	refreshDelay  time.Duration
	refreshStatus int    // non-zero forces this status from the refresh endpoint
	refreshBody   string // non-empty replaces the refresh success body
	dataStatus    int    // non-zero forces this status from the data endpoint
	dataBody      string // non-empty replaces the data success body

	validAccess   map[string]bool
	validRefresh  map[string]bool
	loginCalls    int
	refreshCalls  int
	businessCalls int
}

// override mutates the fake's behavior knobs with the lock held.
func (f *fakeAPI) override(fn func(*fakeAPI)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()

	f := &fakeAPI{
		t:            t,
		secret:       []byte("test-secret"),
		accessTTL:    time.Hour,
		validAccess:  map[string]bool{},
		validRefresh: map[string]bool{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", f.handleLogin)
	mux.HandleFunc("POST /api/auth/register", f.handleRegister)
	mux.HandleFunc("POST /api/auth/refresh", f.handleRefresh)
	mux.HandleFunc("POST /api/auth/logout", f.handleLogout)
	mux.HandleFunc("GET /api/auth/verify-token", f.handleVerify)
	mux.HandleFunc("GET /api/data", f.handleData)

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeAPI) sign(ttl time.Duration) string {
	f.t.Helper()

	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   testSubject,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(f.secret)
	if err != nil {
		f.t.Fatalf("sign token: %v", err)
	}
	return signed
}

func (f *fakeAPI) ttl() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.accessTTL
}

func (f *fakeAPI) issuePair() (string, string) {
	access := f.sign(f.ttl())
	refresh := f.sign(30 * 24 * time.Hour)

	f.mu.Lock()
	f.validAccess[access] = true
	f.validRefresh[refresh] = true
	f.mu.Unlock()

	return access, refresh
}

// expireAccess simulates server-side expiry of one access credential.
func (f *fakeAPI) expireAccess(access string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.validAccess, access)
}

// revokeAllRefresh simulates refresh-credential revocation.
func (f *fakeAPI) revokeAllRefresh() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.validRefresh = map[string]bool{}
}

func (f *fakeAPI) counts() (login, refresh, business int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loginCalls, f.refreshCalls, f.businessCalls
}

func bearerOf(r *http.Request) string {
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}

func (f *fakeAPI) handleLogin(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.loginCalls++
	f.mu.Unlock()

	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeTestJSON(w, http.StatusBadRequest, map[string]any{"error": "Validation failed"})
		return
	}
	if body.Email != testEmail || body.Password != testPassword {
		writeTestJSON(w, http.StatusUnauthorized, map[string]any{
			"error":   "Invalid credentials",
			"message": "Email or password is incorrect",
		})
		return
	}

	access, refresh := f.issuePair()
	writeTestJSON(w, http.StatusOK, map[string]any{
		"message":          "Login successful",
		"user_id":          testSubject,
		"access_token":     access,
		"refresh_token":    refresh,
		"token_expires_in": int(f.ttl().Seconds()),
	})
}

func (f *fakeAPI) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body RegisterParams
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || !body.TermsAccepted {
		writeTestJSON(w, http.StatusBadRequest, map[string]any{"error": "Validation failed"})
		return
	}
	if body.Email == "taken@example.com" {
		writeTestJSON(w, http.StatusConflict, map[string]any{
			"error":   "User already exists",
			"message": "An account with this email already exists",
		})
		return
	}

	access, refresh := f.issuePair()
	writeTestJSON(w, http.StatusCreated, map[string]any{
		"message":          "Registration successful",
		"user_id":          testSubject,
		"access_token":     access,
		"refresh_token":    refresh,
		"token_expires_in": int(f.ttl().Seconds()),
	})
}

func (f *fakeAPI) handleRefresh(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.refreshCalls++
	valid := f.validRefresh[bearerOf(r)]
	ttl := f.accessTTL
	delay, status, body, rotate := f.refreshDelay, f.refreshStatus, f.refreshBody, f.rotateRefresh
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	if status != 0 {
		writeTestJSON(w, status, map[string]any{"error": "Token refresh failed"})
		return
	}
	if !valid {
		writeTestJSON(w, http.StatusUnauthorized, map[string]any{"error": "Token invalid"})
		return
	}
	if body != "" {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
		return
	}

	access := f.sign(ttl)
	f.mu.Lock()
	f.validAccess[access] = true
	f.mu.Unlock()

	payload := map[string]any{
		"access_token":     access,
		"token_expires_in": int(ttl.Seconds()),
	}
	if rotate {
		rotated := f.sign(30 * 24 * time.Hour)
		f.mu.Lock()
		f.validRefresh = map[string]bool{rotated: true}
		f.mu.Unlock()
		payload["refresh_token"] = rotated
	}
	writeTestJSON(w, http.StatusOK, payload)
}

func (f *fakeAPI) handleLogout(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	valid := f.validAccess[bearerOf(r)]
	f.mu.Unlock()
	if !valid {
		writeTestJSON(w, http.StatusUnauthorized, map[string]any{"error": "Token invalid"})
		return
	}
	writeTestJSON(w, http.StatusOK, map[string]any{"message": "Logout successful"})
}

func (f *fakeAPI) handleVerify(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.businessCalls++
	valid := f.validAccess[bearerOf(r)]
	f.mu.Unlock()
	if !valid {
		writeTestJSON(w, http.StatusUnauthorized, map[string]any{"error": "Token invalid"})
		return
	}
	writeTestJSON(w, http.StatusOK, map[string]any{"valid": true, "user_id": testSubject})
}

func (f *fakeAPI) handleData(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.businessCalls++
	valid := f.validAccess[bearerOf(r)]
	status, body := f.dataStatus, f.dataBody
	f.mu.Unlock()

	if status != 0 {
		writeTestJSON(w, status, map[string]any{
			"error":   "Upstream failed",
			"message": "An unexpected error occurred",
		})
		return
	}
	if !valid {
		writeTestJSON(w, http.StatusUnauthorized, map[string]any{"error": "Token invalid"})
		return
	}
	if body != "" {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
		return
	}
	writeTestJSON(w, http.StatusOK, map[string]any{"value": "ok"})
}

func writeTestJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, f *fakeAPI, opts ...func(*Builder)) *Client {
	t.Helper()

	b := New().
		WithBaseURL(f.server.URL).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	for _, opt := range opts {
		opt(b)
	}

	client, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(client.Close)
	return client
}

func mustLogin(t *testing.T, c *Client) *AuthResult {
	t.Helper()

	result, err := c.Login(context.Background(), testEmail, testPassword)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	return result
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool) bool {
	t.Helper()

	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
