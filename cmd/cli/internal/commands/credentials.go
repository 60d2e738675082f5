package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/wolfeidau/admindash/cmd/cli/internal/credentials"
	"github.com/wolfeidau/admindash/internal/models"
	"github.com/wolfeidau/admindash/internal/session"
)

// SessionsCmd manages locally stored sessions.
type SessionsCmd struct {
	List   SessionsListCmd   `cmd:"" default:"1" help:"List servers with a stored session"`
	Forget SessionsForgetCmd `cmd:"" help:"Delete a stored session without contacting the server"`
}

// SessionsListCmd lists every stored session.
type SessionsListCmd struct{}

func (c *SessionsListCmd) Run(ctx context.Context, globals *Globals) error {
	out := globals.stdout()
	current := strings.TrimRight(globals.Server, "/")

	store, err := credentials.NewStore(globals.CredentialsDir, current)
	if err != nil {
		return fmt.Errorf("failed to initialize credential store: %w", err)
	}

	servers, err := store.Servers()
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	if len(servers) == 0 {
		fmt.Fprintln(out, "No sessions found.")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "To log in:")
		fmt.Fprintln(out, "  admindash login --server <url>")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SERVER\tADMIN\tFINGERPRINT\tSINCE\tCURRENT")

	for _, server := range servers {
		scoped, err := credentials.NewStore(globals.CredentialsDir, server)
		if err != nil {
			return err
		}
		cred, err := scoped.Get()
		if err != nil {
			return fmt.Errorf("failed to read session for %s: %w", server, err)
		}

		marker := ""
		if server == current {
			marker = "*"
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			server,
			adminEmail(cred),
			session.Fingerprint(cred.Token),
			cred.StoredAt.Local().Format("2006-01-02 15:04"),
			marker,
		)
	}

	return w.Flush()
}

// SessionsForgetCmd deletes the stored session for a server.
type SessionsForgetCmd struct {
	Server string `arg:"" optional:"" help:"Server URL, defaults to --server"`
}

func (c *SessionsForgetCmd) Run(ctx context.Context, globals *Globals) error {
	server := c.Server
	if server == "" {
		server = globals.Server
	}

	store, err := credentials.NewStore(globals.CredentialsDir, server)
	if err != nil {
		return fmt.Errorf("failed to initialize credential store: %w", err)
	}

	if _, err := store.Get(); err != nil {
		return fmt.Errorf("no session stored for %s", strings.TrimRight(server, "/"))
	}
	if err := store.Clear(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	fmt.Fprintf(globals.stdout(), "Forgot session for %s\n", strings.TrimRight(server, "/"))
	return nil
}

// adminEmail reads the email cached with the credential at login.
func adminEmail(cred *session.Credential) string {
	var admin models.AdminProfile
	if len(cred.Admin) == 0 || json.Unmarshal(cred.Admin, &admin) != nil || admin.Email == "" {
		return "-"
	}
	return admin.Email
}
