package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/term"

	"github.com/wolfeidau/admindash/internal/apiclient"
	"github.com/wolfeidau/admindash/internal/models"
	"github.com/wolfeidau/admindash/internal/resource"
	"github.com/wolfeidau/admindash/internal/session"
)

var errNoInput = errors.New("no input")

// LoginCmd exchanges an email and password for a stored session.
type LoginCmd struct {
	Email    string `help:"Admin email address" env:"ADMINDASH_EMAIL"`
	Password string `help:"Admin password, prompted for when omitted" env:"ADMINDASH_PASSWORD"`
}

func (l *LoginCmd) Run(ctx context.Context, globals *Globals) error {
	e, err := newEnv(globals)
	if err != nil {
		return err
	}

	reader := bufio.NewReader(globals.stdin())
	out := globals.stdout()

	admin, err := login(ctx, e, reader, out, l.Email, l.Password)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Logged in to %s as %s\n", e.client.BaseURL(), admin.Email)
	return nil
}

// login prompts for whatever is missing, logs in and stores the result.
func login(ctx context.Context, e *env, in *bufio.Reader, out io.Writer, email, password string) (*models.AdminProfile, error) {
	var err error
	if email == "" {
		if email, err = prompt(in, out, "Email: "); err != nil {
			return nil, err
		}
	}
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("invalid email address %q", email)
	}
	if password == "" {
		if password, err = readPassword(in, out); err != nil {
			return nil, err
		}
	}
	if password == "" {
		return nil, errors.New("password is required")
	}

	res, err := e.client.Login(ctx, email, password)
	if err != nil {
		return nil, loginError(err)
	}

	admin := &models.AdminProfile{Email: email}
	if len(res.Admin) > 0 {
		if err := json.Unmarshal(res.Admin, admin); err != nil {
			log.Warn().Err(err).Msg("failed to decode admin profile")
		}
	}

	err = e.store.Set(&session.Credential{
		Token:   res.Token,
		Cookies: res.Cookies,
		Admin:   res.Admin,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store credential: %w", err)
	}

	log.Debug().Str("fingerprint", session.Fingerprint(res.Token)).Str("path", e.store.Path()).Msg("credential stored")

	return admin, nil
}

func loginError(err error) error {
	var apiErr *apiclient.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	switch apiErr.Kind {
	case apiclient.KindAuth:
		return fmt.Errorf("login failed: Invalid email or password: %w", err)
	case apiclient.KindNotFound:
		return fmt.Errorf("login failed: Account not found: %w", err)
	case apiclient.KindNetwork:
		return fmt.Errorf("login failed: unable to reach server: %w", err)
	case apiclient.KindServer:
		return fmt.Errorf("login failed: server error, try again later: %w", err)
	default:
		return fmt.Errorf("login failed: %w", err)
	}
}

func prompt(in *bufio.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("%w: %w", errNoInput, err)
	}
	return strings.TrimSpace(line), nil
}

// readPassword reads without echo when stdin is a terminal.
func readPassword(in *bufio.Reader, out io.Writer) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) && in.Buffered() == 0 {
		fmt.Fprint(out, "Password: ")
		pw, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("%w: failed to read password: %w", errNoInput, err)
		}
		return string(pw), nil
	}
	return prompt(in, out, "Password: ")
}

// LogoutCmd ends the session.
type LogoutCmd struct {
	Yes bool `short:"y" help:"Do not ask for confirmation"`
}

func (l *LogoutCmd) Run(ctx context.Context, globals *Globals) error {
	e, err := newEnv(globals)
	if err != nil {
		return err
	}

	confirm := resource.AlwaysConfirm
	if !l.Yes {
		confirm = resource.PromptConfirmer(globals.stdin(), globals.stdout())
	}

	return logout(ctx, e, confirm, globals.stdout())
}

func logout(ctx context.Context, e *env, confirm resource.Confirmer, out io.Writer) error {
	if !confirm.Confirm("Log out?") {
		return resource.ErrCancelled
	}

	cred, err := e.store.Get()
	switch {
	case errors.Is(err, session.ErrNoCredential):
		fmt.Fprintln(out, "Not logged in.")
		return nil
	case err != nil:
		log.Warn().Err(err).Msg("failed to read stored credential")
	default:
		e.client.UseCredential(cred.Token, cred.Cookies)
		if err := e.client.Logout(ctx); err != nil {
			log.Warn().Err(err).Msg("server logout failed, clearing local session anyway")
		}
	}

	if err := e.store.Clear(); err != nil {
		return fmt.Errorf("failed to clear credential: %w", err)
	}
	if err := e.client.PurgeCache(); err != nil {
		log.Warn().Err(err).Msg("failed to purge response cache")
	}

	fmt.Fprintln(out, "Logged out.")
	return nil
}

// StatusCmd reports whether the stored session is still valid.
type StatusCmd struct{}

func (s *StatusCmd) Run(ctx context.Context, globals *Globals) error {
	e, err := newEnv(globals)
	if err != nil {
		return err
	}
	out := globals.stdout()

	// read before evaluating, a denied gate clears the store
	cred, err := e.store.Get()
	if err != nil && !errors.Is(err, session.ErrNoCredential) {
		log.Debug().Err(err).Msg("stored credential unreadable")
	}

	start := time.Now()
	state := e.gate.Evaluate(ctx)

	fmt.Fprintf(out, "Server:   %s\n", e.client.BaseURL())
	fmt.Fprintf(out, "Session:  %s\n", state)
	if cred != nil {
		fmt.Fprintf(out, "Token:    %s\n", session.Fingerprint(cred.Token))
		if !cred.StoredAt.IsZero() {
			fmt.Fprintf(out, "Since:    %s\n", cred.StoredAt.Local().Format("2006-01-02 15:04:05"))
		}
	}
	fmt.Fprintf(out, "Checked:  %s\n", time.Since(start).Round(time.Millisecond))

	if state != session.StateGranted {
		return ErrNotLoggedIn
	}
	return nil
}
