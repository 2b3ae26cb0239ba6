package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goLoginRisk "github.com/CrypticVoid/goLoginRisk"
	"github.com/CrypticVoid/goLoginRisk/risk"

	"github.com/google/uuid"
)

func main() {
	var (
		clients   = flag.Int("clients", 64, "number of concurrent simulated clients (one engine each)")
		ops       = flag.Int("ops", 50000, "total login attempts across all clients")
		mfaRate   = flag.Int("mfa-rate", 5, "percent of attempts answered with an MFA challenge")
		failRate  = flag.Int("fail-rate", 10, "percent of attempts answered with invalid credentials")
		torRate   = flag.Int("tor-rate", 2, "percent of attempts carrying a Tor signal (blocked client-side)")
		delayMean = flag.Duration("backend-delay", 2*time.Millisecond, "simulated backend round-trip time")
	)
	flag.Parse()

	if *clients <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "clients and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	engines := make([]*goLoginRisk.Engine, *clients)
	for i := range engines {
		engine, err := goLoginRisk.New().
			WithTransport(&loadBackend{delay: *delayMean}).
			WithLatencyHistograms(true).
			Build()
		if err != nil {
			fmt.Fprintf(os.Stderr, "engine build: %v\n", err)
			os.Exit(1)
		}
		engines[i] = engine
		defer engine.Close()
	}

	var (
		wg        sync.WaitGroup
		cursor    int64
		outcomes  outcomeCounts
		latencies = make([]time.Duration, 0, *ops)
		mu        sync.Mutex
	)

	fmt.Printf("running %d attempts across %d clients...\n", *ops, *clients)
	start := time.Now()
	for w := 0; w < *clients; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			engine := engines[worker]
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= *ops {
					return
				}

				req := buildRequest(r, *mfaRate, *failRate, *torRate)
				t0 := time.Now()
				outcome, err := engine.Login(ctx, req)
				d := time.Since(t0)
				if err != nil {
					outcomes.engineErrors.Add(1)
				} else {
					outcomes.count(outcome.Tag)
				}

				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)

	fmt.Println("---- results ----")
	printStats(computeStats(total, latencies))
	fmt.Printf("outcomes: success=%d mfa_required=%d blocked=%d error=%d engine_errors=%d\n",
		outcomes.success.Load(),
		outcomes.mfaRequired.Load(),
		outcomes.blocked.Load(),
		outcomes.errored.Load(),
		outcomes.engineErrors.Load(),
	)
}

func buildRequest(r *rand.Rand, mfaRate, failRate, torRate int) goLoginRisk.LoginRequest {
	req := goLoginRisk.LoginRequest{
		Identifier: fmt.Sprintf("user-%d@example.com", r.Intn(10000)),
		Password:   "load-test",
		Device: risk.DeviceInfo{
			DeviceType: risk.DeviceDesktop,
			OS:         "linux",
			Browser:    "loadtest",
		},
	}
	roll := r.Intn(100)
	switch {
	case roll < torRate:
		isTor := true
		req.Risk = &risk.Context{Signals: &risk.Signals{IsTor: &isTor}}
	case roll < torRate+failRate:
		req.Password = "wrong-password"
	case roll < torRate+failRate+mfaRate:
		req.Identifier = "mfa-" + req.Identifier
	}
	return req
}

type outcomeCounts struct {
	success      atomic.Int64
	mfaRequired  atomic.Int64
	blocked      atomic.Int64
	errored      atomic.Int64
	engineErrors atomic.Int64
}

func (c *outcomeCounts) count(tag goLoginRisk.OutcomeTag) {
	switch tag {
	case goLoginRisk.OutcomeSuccess:
		c.success.Add(1)
	case goLoginRisk.OutcomeMFARequired:
		c.mfaRequired.Add(1)
	case goLoginRisk.OutcomeBlocked:
		c.blocked.Add(1)
	default:
		c.errored.Add(1)
	}
}

// loadBackend simulates the auth server: fixed round-trip delay, scripted
// failures keyed off the request shape.
type loadBackend struct {
	delay time.Duration

	mu       sync.Mutex
	sessions map[string]goLoginRisk.Identity
}

func (b *loadBackend) ExchangeCredentials(ctx context.Context, req goLoginRisk.LoginRequest, _ string) (goLoginRisk.ExchangeResult, error) {
	if err := b.sleep(ctx); err != nil {
		return goLoginRisk.ExchangeResult{}, err
	}
	if req.Password == "wrong-password" {
		return goLoginRisk.ExchangeResult{}, fmt.Errorf("invalid credentials")
	}
	if len(req.Identifier) > 4 && req.Identifier[:4] == "mfa-" {
		return goLoginRisk.ExchangeResult{
			Challenge: &goLoginRisk.MFAChallenge{ChallengeID: uuid.NewString(), Method: "totp"},
		}, nil
	}

	access := uuid.NewString()
	b.mu.Lock()
	if b.sessions == nil {
		b.sessions = make(map[string]goLoginRisk.Identity)
	}
	b.sessions[access] = goLoginRisk.Identity{
		UserID:    uuid.NewString(),
		SessionID: uuid.NewString(),
	}
	b.mu.Unlock()

	return goLoginRisk.ExchangeResult{
		Tokens: goLoginRisk.TokenPair{AccessToken: access, RefreshToken: uuid.NewString()},
	}, nil
}

func (b *loadBackend) ConfirmIdentity(ctx context.Context, accessToken string) (goLoginRisk.Identity, error) {
	if err := b.sleep(ctx); err != nil {
		return goLoginRisk.Identity{}, err
	}
	b.mu.Lock()
	identity, ok := b.sessions[accessToken]
	delete(b.sessions, accessToken)
	b.mu.Unlock()
	if !ok {
		return goLoginRisk.Identity{}, fmt.Errorf("unknown access token")
	}
	return identity, nil
}

func (b *loadBackend) sleep(ctx context.Context) error {
	if b.delay <= 0 {
		return nil
	}
	select {
	case <-time.After(b.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type runStats struct {
	total   time.Duration
	ops     int
	p50     time.Duration
	p95     time.Duration
	p99     time.Duration
	opsPerS float64
}

func computeStats(total time.Duration, samples []time.Duration) runStats {
	if len(samples) == 0 {
		return runStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return runStats{
		total:   total,
		ops:     len(samples),
		p50:     percentile(samples, 50),
		p95:     percentile(samples, 95),
		p99:     percentile(samples, 99),
		opsPerS: float64(len(samples)) / total.Seconds(),
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

func printStats(s runStats) {
	fmt.Printf("login: ops=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		s.ops,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
