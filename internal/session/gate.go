package session

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mr-tron/base58"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/wolfeidau/admindash/internal/telemetry"
)

// ErrDenied is returned by Guard when the session is not valid.
var ErrDenied = errors.New("session denied")

const defaultValidateTimeout = 10 * time.Second

// State of a Gate. The zero value is StateUnknown.
type State int

const (
	StateUnknown State = iota
	StateGranted
	StateDenied
)

func (s State) String() string {
	switch s {
	case StateGranted:
		return "granted"
	case StateDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// Validator asks the backend whether a credential is still valid.
type Validator interface {
	Validate(ctx context.Context, token string, cookies []*http.Cookie) error
}

// GateOption customises a Gate.
type GateOption func(*Gate)

// WithTimeout bounds how long a validation may take.
func WithTimeout(d time.Duration) GateOption {
	return func(g *Gate) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithOnClear runs fn after the stored credential has been cleared, so
// state derived from the old session (such as cached responses) can go
// with it.
func WithOnClear(fn func() error) GateOption {
	return func(g *Gate) { g.onClear = fn }
}

// WithObserver is called with every state the gate enters, starting with
// StateUnknown when evaluation begins.
func WithObserver(fn func(State)) GateOption {
	return func(g *Gate) { g.observe = fn }
}

// Gate decides whether the protected region may be entered. Each Evaluate
// call corresponds to one mount of that region.
type Gate struct {
	store     CredentialStore
	validator Validator
	timeout   time.Duration
	observe   func(State)
	onClear   func() error

	mu    sync.Mutex
	state State
}

func NewGate(store CredentialStore, validator Validator, opts ...GateOption) *Gate {
	g := &Gate{
		store:     store,
		validator: validator,
		timeout:   defaultValidateTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// State returns the last state entered.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Evaluate resolves the gate to StateGranted or StateDenied. Without a
// stored credential no request is made. Any validation failure clears the
// stored credential before denying.
func (g *Gate) Evaluate(ctx context.Context) (state State) {
	g.transition(StateUnknown)

	ctx, span := telemetry.Tracer().Start(ctx, "session.Evaluate")
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("session validation panicked")
			g.clear()
			state = StateDenied
		}
		g.transition(state)
		outcome := attribute.String("outcome", state.String())
		telemetry.GetMetrics().SessionEvaluations.Add(ctx, 1, metric.WithAttributes(outcome))
		span.SetAttributes(outcome)
		span.End()
	}()

	cred, err := g.store.Get()
	if err != nil {
		if !errors.Is(err, ErrNoCredential) {
			log.Warn().Err(err).Msg("failed to read stored credential")
			g.clear()
		}
		return StateDenied
	}

	if strings.TrimSpace(cred.Token) == "" {
		g.clear()
		return StateDenied
	}

	vctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if err := g.validator.Validate(vctx, cred.Token, cred.Cookies); err != nil {
		log.Debug().Err(err).Str("fingerprint", Fingerprint(cred.Token)).Msg("session validation failed")
		g.clear()
		return StateDenied
	}

	log.Debug().Str("fingerprint", Fingerprint(cred.Token)).Msg("session validated")
	return StateGranted
}

// Guard evaluates the gate and runs fn only when access is granted.
func (g *Gate) Guard(ctx context.Context, fn func(context.Context) error) error {
	if g.Evaluate(ctx) != StateGranted {
		return ErrDenied
	}
	return fn(ctx)
}

func (g *Gate) transition(s State) {
	g.mu.Lock()
	g.state = s
	g.mu.Unlock()

	if g.observe != nil {
		g.observe(s)
	}
}

func (g *Gate) clear() {
	if err := g.store.Clear(); err != nil {
		log.Warn().Err(err).Msg("failed to clear stored credential")
	}
	if g.onClear != nil {
		if err := g.onClear(); err != nil {
			log.Warn().Err(err).Msg("failed to drop state of cleared session")
		}
	}
}

// Fingerprint identifies a token without revealing it: base58 of its
// SHA-256 digest, truncated for display.
func Fingerprint(token string) string {
	if token == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(token))
	fp := base58.Encode(hash[:])
	if len(fp) > 12 {
		fp = fp[:12]
	}
	return fmt.Sprintf("%s...", fp)
}
