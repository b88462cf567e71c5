package authflow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/evergrow360/authflow/credstore"
)

func TestLoginInstallsCredentialPair(t *testing.T) {
	f := newFakeAPI(t)
	c := newTestClient(t, f)

	result := mustLogin(t, c)

	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Fatalf("expected both credentials in result, got %+v", result)
	}
	if result.UserID != testSubject {
		t.Errorf("UserID = %q, want %q", result.UserID, testSubject)
	}
	if !c.IsAuthenticated() {
		t.Error("expected IsAuthenticated after login")
	}
	if got := c.SubjectID(); got != testSubject {
		t.Errorf("SubjectID = %q, want %q", got, testSubject)
	}
	if got := c.MetricsSnapshot().Counters[MetricLoginSuccess]; got != 1 {
		t.Errorf("login success counter = %d, want 1", got)
	}
}

func TestLoginRejectedCredentials(t *testing.T) {
	f := newFakeAPI(t)
	c := newTestClient(t, f)

	_, err := c.Login(context.Background(), testEmail, "wrong-password")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if c.IsAuthenticated() {
		t.Error("rejected login must not install credentials")
	}
	if got := c.MetricsSnapshot().Counters[MetricLoginFailure]; got != 1 {
		t.Errorf("login failure counter = %d, want 1", got)
	}
}

func TestRegisterInstallsCredentialPair(t *testing.T) {
	f := newFakeAPI(t)
	c := newTestClient(t, f)

	result, err := c.Register(context.Background(), RegisterParams{
		Email:         "new@example.com",
		Password:      testPassword,
		FirstName:     "Alice",
		TermsAccepted: true,
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if result.AccessToken == "" {
		t.Fatal("expected access credential in register result")
	}
	if !c.IsAuthenticated() {
		t.Error("expected IsAuthenticated after register")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newFakeAPI(t)
	c := newTestClient(t, f)

	_, err := c.Register(context.Background(), RegisterParams{
		Email:         "taken@example.com",
		Password:      testPassword,
		TermsAccepted: true,
	})
	if !errors.Is(err, ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}
	if c.IsAuthenticated() {
		t.Error("duplicate register must not install credentials")
	}
}

func TestLogoutClearsCredentials(t *testing.T) {
	f := newFakeAPI(t)
	c := newTestClient(t, f)
	mustLogin(t, c)

	if err := c.Logout(context.Background()); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if c.IsAuthenticated() {
		t.Error("expected credentials cleared after logout")
	}
	// idempotent: a second logout is a no-op, not an error
	if err := c.Logout(context.Background()); err != nil {
		t.Fatalf("second logout failed: %v", err)
	}
}

func TestLogoutSucceedsWhenServerUnreachable(t *testing.T) {
	f := newFakeAPI(t)
	c := newTestClient(t, f)
	mustLogin(t, c)

	f.server.Close()

	if err := c.Logout(context.Background()); err != nil {
		t.Fatalf("logout must be best-effort, got %v", err)
	}
	if c.IsAuthenticated() {
		t.Error("expected local credentials cleared despite notification failure")
	}
}

func TestRestoreFromSharedStore(t *testing.T) {
	f := newFakeAPI(t)
	store := credstore.NewMemory()

	first := newTestClient(t, f, func(b *Builder) { b.WithStore(store) })
	mustLogin(t, first)
	first.Close()

	second := newTestClient(t, f, func(b *Builder) { b.WithStore(store) })
	if !second.IsAuthenticated() {
		t.Fatal("expected credentials restored from store")
	}
	if got := second.SubjectID(); got != testSubject {
		t.Errorf("SubjectID = %q, want %q", got, testSubject)
	}

	resp, err := second.Call(context.Background(), Request{Method: "GET", Path: "/api/data"})
	if err != nil {
		t.Fatalf("call with restored credentials failed: %v", err)
	}
	if resp.Status != 200 {
		t.Errorf("status = %d, want 200", resp.Status)
	}
}

func TestVerifyToken(t *testing.T) {
	f := newFakeAPI(t)
	c := newTestClient(t, f)
	mustLogin(t, c)

	userID, err := c.VerifyToken(context.Background())
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if userID != testSubject {
		t.Errorf("userID = %q, want %q", userID, testSubject)
	}
}

func TestSubjectIDUnauthenticated(t *testing.T) {
	f := newFakeAPI(t)
	c := newTestClient(t, f)

	if got := c.SubjectID(); got != "" {
		t.Errorf("SubjectID without credentials = %q, want empty", got)
	}
}

func TestSubjectIDMalformedCredential(t *testing.T) {
	f := newFakeAPI(t)
	c := newTestClient(t, f)

	c.keeper.set(context.Background(), "not-a-jwt", "")
	if got := c.SubjectID(); got != "" {
		t.Errorf("SubjectID with malformed credential = %q, want empty", got)
	}
}

func TestCloseRejectsFurtherCalls(t *testing.T) {
	f := newFakeAPI(t)
	c := newTestClient(t, f)
	mustLogin(t, c)

	c.Close()

	if _, err := c.Call(context.Background(), Request{Method: "GET", Path: "/api/data"}); !errors.Is(err, ErrClientClosed) {
		t.Errorf("Call after Close: got %v, want ErrClientClosed", err)
	}
	if _, err := c.Login(context.Background(), testEmail, testPassword); !errors.Is(err, ErrClientClosed) {
		t.Errorf("Login after Close: got %v, want ErrClientClosed", err)
	}
	// credentials survive Close so a later client can resume the session
	if !c.keeper.authenticated() {
		t.Error("Close must not clear stored credentials")
	}
}

func TestBuilderBuildsOnce(t *testing.T) {
	f := newFakeAPI(t)

	b := New().
		WithBaseURL(f.server.URL).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	c, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(c.Close)

	if _, err := b.Build(); err == nil {
		t.Fatal("expected second Build to fail")
	}
}

func TestBuilderRequiresBaseURL(t *testing.T) {
	if _, err := New().Build(); err == nil {
		t.Fatal("expected Build without base URL to fail")
	}
}
