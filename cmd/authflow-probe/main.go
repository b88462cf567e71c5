// Command authflow-probe hammers an API through the authflow client and
// reports call latency percentiles together with the client's refresh
// counters. Without AUTHFLOW_BASE_URL it starts an embedded stub API that
// issues short-lived tokens, so refresh behavior is exercised end to end
// with no external dependencies.
package main

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ilyakaznacheev/cleanenv"

	authflow "github.com/evergrow360/authflow"
)

type probeConfig struct {
	BaseURL  string `env:"AUTHFLOW_BASE_URL"`
	Email    string `env:"AUTHFLOW_EMAIL" env-default:"probe@example.com"`
	Password string `env:"AUTHFLOW_PASSWORD" env-default:"probe-password"`
	Path     string `env:"AUTHFLOW_PROBE_PATH" env-default:"/api/probe"`
}

func main() {
	var (
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 20000, "total calls to issue")
		accessTTL   = flag.Duration("access-ttl", 2*time.Second, "stub access token lifetime (embedded stub only)")
		margin      = flag.Duration("margin", time.Second, "proactive refresh margin")
	)
	flag.Parse()

	if *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "concurrency and ops must be > 0")
		os.Exit(2)
	}

	var cfg probeConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "read env: %v\n", err)
		os.Exit(1)
	}

	cleanup := func() {}
	if cfg.BaseURL == "" {
		stub, err := startStub(*accessTTL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start stub api: %v\n", err)
			os.Exit(1)
		}
		cfg.BaseURL = stub.baseURL
		cleanup = stub.close
		fmt.Printf("using embedded stub api at %s (access ttl %s)\n", stub.baseURL, *accessTTL)
	} else {
		fmt.Printf("using api at %s\n", cfg.BaseURL)
	}
	defer cleanup()

	client, err := authflow.New().
		WithBaseURL(cfg.BaseURL).
		WithProactiveMargin(*margin).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build client: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	ctx := context.Background()
	if _, err := client.Login(ctx, cfg.Email, cfg.Password); err != nil {
		fmt.Fprintf(os.Stderr, "login failed: %v\n", err)
		os.Exit(1)
	}

	stats := runCallPhase(ctx, client, cfg.Path, *ops, *concurrency)

	fmt.Println("---- results ----")
	printStats("call", stats)

	snapshot := client.MetricsSnapshot()
	fmt.Printf("refresh: success=%d failure=%d coalesced=%d proactive=%d retried=%d\n",
		snapshot.Counters[authflow.MetricRefreshSuccess],
		snapshot.Counters[authflow.MetricRefreshFailure],
		snapshot.Counters[authflow.MetricRefreshCoalesced],
		snapshot.Counters[authflow.MetricRefreshProactive],
		snapshot.Counters[authflow.MetricCallRetried],
	)
}

func runCallPhase(ctx context.Context, client *authflow.Client, path string, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				_, err := client.Call(ctx, authflow.Request{Method: http.MethodGet, Path: path})
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

/*
====================================
EMBEDDED STUB API
====================================
*/

type stubAPI struct {
	baseURL   string
	server    *http.Server
	secret    []byte
	accessTTL time.Duration
}

func startStub(accessTTL time.Duration) (*stubAPI, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}

	stub := &stubAPI{
		baseURL:   "http://" + ln.Addr().String(),
		secret:    secret,
		accessTTL: accessTTL,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", stub.handleLogin)
	mux.HandleFunc("POST /api/auth/refresh", stub.handleRefresh)
	mux.HandleFunc("GET /api/probe", stub.handleProbe)

	stub.server = &http.Server{Handler: mux}
	go func() { _ = stub.server.Serve(ln) }()

	return stub, nil
}

func (s *stubAPI) close() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}

func (s *stubAPI) sign(subject string, ttl time.Duration) string {
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	signed, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	return signed
}

func (s *stubAPI) parseBearer(r *http.Request) (*jwt.RegisteredClaims, error) {
	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	return &claims, nil
}

func (s *stubAPI) handleLogin(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message":          "Login successful",
		"user_id":          "probe-user",
		"access_token":     s.sign("probe-user", s.accessTTL),
		"refresh_token":    s.sign("probe-user", 24*time.Hour),
		"token_expires_in": int(s.accessTTL.Seconds()),
	})
}

func (s *stubAPI) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if _, err := s.parseBearer(r); err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "Token invalid"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token":     s.sign("probe-user", s.accessTTL),
		"token_expires_in": int(s.accessTTL.Seconds()),
	})
}

func (s *stubAPI) handleProbe(w http.ResponseWriter, r *http.Request) {
	if _, err := s.parseBearer(r); err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "Token invalid"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
