package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/admindash/cmd/cli/internal/credentials"
	"github.com/wolfeidau/admindash/internal/apiclient"
	"github.com/wolfeidau/admindash/internal/models"
	"github.com/wolfeidau/admindash/internal/resource"
	"github.com/wolfeidau/admindash/internal/session"
)

// ErrNotLoggedIn is returned by protected commands when the session gate
// denies access.
var ErrNotLoggedIn = errors.New("not logged in, run 'admindash login'")

type Globals struct {
	Debug          bool
	Version        string
	Server         string
	Timeout        time.Duration
	CredentialsDir string
	CacheDir       string
	NoCache        bool

	// In and Out default to the process's stdin and stdout.
	In  io.Reader
	Out io.Writer
}

func (g *Globals) stdin() io.Reader {
	if g.In != nil {
		return g.In
	}
	return os.Stdin
}

func (g *Globals) stdout() io.Writer {
	if g.Out != nil {
		return g.Out
	}
	return os.Stdout
}

// env is the per invocation wiring shared by commands.
type env struct {
	client *apiclient.Client
	store  *credentials.Store
	gate   *session.Gate
}

func newEnv(globals *Globals, opts ...session.GateOption) (*env, error) {
	cfg := apiclient.DefaultConfig()
	if globals.Server != "" {
		cfg.ServerURL = globals.Server
	}
	if globals.Timeout > 0 {
		cfg.Timeout = globals.Timeout
	}
	cfg.CacheDir = globals.CacheDir
	cfg.NoCache = globals.NoCache
	cfg.UserAgent = "admindash-cli/" + globals.Version

	client, err := apiclient.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	store, err := credentials.NewStore(globals.CredentialsDir, client.BaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize credential store: %w", err)
	}

	opts = append([]session.GateOption{
		session.WithTimeout(cfg.Timeout),
		session.WithOnClear(client.PurgeCache),
	}, opts...)

	return &env{
		client: client,
		store:  store,
		gate:   session.NewGate(store, client, opts...),
	}, nil
}

// guard runs fn behind the session gate.
func (e *env) guard(ctx context.Context, fn func(ctx context.Context) error) error {
	err := e.gate.Guard(ctx, fn)
	if errors.Is(err, session.ErrDenied) {
		return ErrNotLoggedIn
	}
	return err
}

// open looks up a resource and returns a controller over the env's client.
func (e *env) open(name string) (resource.Controller, error) {
	d, ok := models.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown resource %q, run 'admindash resources' to list them", name)
	}
	return d.Open(e.client), nil
}

// protected opens name and runs fn with it behind the gate.
func protected(ctx context.Context, globals *Globals, name string, fn func(context.Context, resource.Controller) error) error {
	e, err := newEnv(globals)
	if err != nil {
		return err
	}

	ctrl, err := e.open(name)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	return e.guard(ctx, func(ctx context.Context) error {
		return fn(ctx, ctrl)
	})
}

// describe renders err for an operator.
func describe(err error) string {
	var apiErr *apiclient.Error
	if !errors.As(err, &apiErr) {
		return err.Error()
	}

	switch apiErr.Kind {
	case apiclient.KindNetwork:
		return fmt.Sprintf("network error: %s", apiErr.Message)
	case apiclient.KindAuth:
		return fmt.Sprintf("not authorised: %s", apiErr.Message)
	case apiclient.KindNotFound:
		return fmt.Sprintf("not found: %s", apiErr.Message)
	case apiclient.KindValidation:
		return fmt.Sprintf("invalid input: %s", apiErr.Message)
	case apiclient.KindServer:
		return fmt.Sprintf("server error: %s", apiErr.Message)
	default:
		return apiErr.Error()
	}
}

// userError wraps err with an operator facing message while keeping the
// chain for errors.Is.
type userError struct {
	err error
}

func (u userError) Error() string { return describe(u.err) }
func (u userError) Unwrap() error { return u.err }

func friendly(err error) error {
	if err == nil || errors.Is(err, ErrNotLoggedIn) || errors.Is(err, resource.ErrCancelled) {
		return err
	}
	log.Debug().Err(err).Msg("command failed")
	return userError{err: err}
}
