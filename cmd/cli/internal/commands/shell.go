package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-shellwords"
	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/admindash/internal/apiclient"
	"github.com/wolfeidau/admindash/internal/models"
	"github.com/wolfeidau/admindash/internal/resource"
	"github.com/wolfeidau/admindash/internal/session"
)

var errExit = errors.New("exit")

// ShellCmd is an interactive session over every resource. The session is
// validated when the shell starts and again after any authorisation
// failure.
type ShellCmd struct {
	Tab string `arg:"" optional:"" default:"products" help:"Resource tab to open first"`
}

func (s *ShellCmd) Run(ctx context.Context, globals *Globals) error {
	out := globals.stdout()

	e, err := newEnv(globals, session.WithObserver(func(state session.State) {
		if state == session.StateUnknown {
			fmt.Fprintln(out, "Validating session...")
		}
	}))
	if err != nil {
		return err
	}

	in := bufio.NewReader(globals.stdin())
	sh := &shell{
		env:     e,
		in:      in,
		out:     out,
		confirm: resource.PromptConfirmer(in, out),
	}
	defer sh.unmount()

	return sh.run(ctx, s.Tab)
}

type shell struct {
	env     *env
	in      *bufio.Reader
	out     io.Writer
	confirm resource.Confirmer

	tab   resource.Controller
	stale bool
}

func (sh *shell) run(ctx context.Context, first string) error {
	if err := sh.mount(ctx); err != nil {
		return err
	}
	if err := sh.use(ctx, first); err != nil {
		fmt.Fprintf(sh.out, "error: %s\n", describe(err))
	}

	for {
		if sh.stale {
			if err := sh.mount(ctx); err != nil {
				return err
			}
			if sh.tab != nil {
				if err := sh.use(ctx, sh.tab.Name()); err != nil {
					fmt.Fprintf(sh.out, "error: %s\n", describe(err))
				}
			}
		}

		fmt.Fprintf(sh.out, "%s> ", sh.prompt())
		line, err := sh.in.ReadString('\n')
		if err != nil && line == "" {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(sh.out)
				return nil
			}
			return fmt.Errorf("failed to read command: %w", err)
		}

		args, err := shellwords.Parse(line)
		if err != nil {
			fmt.Fprintf(sh.out, "error: %s\n", err)
			continue
		}
		if len(args) == 0 {
			continue
		}

		err = sh.exec(ctx, args[0], args[1:])
		switch {
		case errors.Is(err, errExit):
			return nil
		case errors.Is(err, resource.ErrCancelled):
			fmt.Fprintln(sh.out, "Cancelled.")
		case err != nil:
			if errors.Is(err, apiclient.ErrAuth) {
				sh.stale = true
			}
			fmt.Fprintf(sh.out, "error: %s\n", describe(err))
		}
	}
}

// mount evaluates the session gate, sending the operator through login
// until access is granted or input ends.
func (sh *shell) mount(ctx context.Context) error {
	sh.stale = false

	for sh.env.gate.Evaluate(ctx) != session.StateGranted {
		sh.unmount()
		fmt.Fprintln(sh.out, "Not logged in.")

		admin, err := login(ctx, sh.env, sh.in, sh.out, "", "")
		if errors.Is(err, errNoInput) {
			return ErrNotLoggedIn
		}
		if err != nil {
			fmt.Fprintf(sh.out, "error: %s\n", err)
			continue
		}
		fmt.Fprintf(sh.out, "Logged in as %s\n", admin.Email)
	}

	return nil
}

func (sh *shell) unmount() {
	if sh.tab != nil {
		sh.tab.Close()
	}
}

func (sh *shell) prompt() string {
	if sh.tab == nil {
		return "admindash"
	}
	return sh.tab.Name()
}

func (sh *shell) exec(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "exit", "quit":
		return errExit
	case "help", "?":
		sh.help()
		return nil
	case "tabs":
		return (&ResourcesCmd{}).Run(ctx, &Globals{Out: sh.out})
	case "use":
		if len(args) != 1 {
			return errors.New("usage: use <resource>")
		}
		return sh.use(ctx, args[0])
	case "stats":
		return showStats(ctx, sh.env, sh.out)
	case "profile":
		var profile models.AdminProfile
		if err := sh.env.client.Profile(ctx, &profile); err != nil {
			return err
		}
		printProfile(sh.out, &profile)
		return nil
	case "logout":
		if err := logout(ctx, sh.env, sh.confirm, sh.out); err != nil {
			return err
		}
		return errExit
	}

	if sh.tab == nil {
		return errors.New("no tab open, run 'use <resource>'")
	}

	switch cmd {
	case "load", "reload":
		if _, err := sh.tab.Load(ctx); err != nil {
			return err
		}
		printRows(sh.out, sh.tab, sh.tab.Visible())
	case "show", "ls":
		printRows(sh.out, sh.tab, sh.tab.Visible())
	case "within":
		if len(args) != 2 {
			return fmt.Errorf("usage: within <%s> <id>", strings.Join(sh.tab.Scopes(), "|"))
		}
		rows, err := sh.tab.LoadScoped(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		printRows(sh.out, sh.tab, rows)
	case "filter":
		printRows(sh.out, sh.tab, sh.tab.SetFilter(strings.Join(args, " ")))
	case "status-filter":
		status := ""
		if len(args) > 0 {
			status = args[0]
		}
		printRows(sh.out, sh.tab, sh.tab.SetStatusFilter(status))
	case "create":
		draft, err := resource.ParseFields(args)
		if err != nil {
			return err
		}
		row, err := sh.tab.Create(ctx, draft)
		if err != nil {
			return err
		}
		printResult(sh.out, sh.tab, "Created", row)
	case "update":
		if len(args) < 2 {
			return errors.New("usage: update <id> key=value...")
		}
		patch, err := resource.ParseFields(args[1:])
		if err != nil {
			return err
		}
		row, err := sh.tab.Update(ctx, args[0], patch)
		if err != nil {
			return err
		}
		printResult(sh.out, sh.tab, "Updated", row)
	case "delete", "rm":
		if len(args) != 1 {
			return errors.New("usage: delete <id>")
		}
		if err := sh.tab.Remove(ctx, args[0], sh.confirm); err != nil {
			return err
		}
		fmt.Fprintf(sh.out, "Deleted %s %s\n", sh.tab.Name(), args[0])
	case "status":
		if len(args) != 2 {
			return fmt.Errorf("usage: status <id> <%s>", strings.Join(sh.tab.Statuses(), "|"))
		}
		row, err := sh.tab.TransitionStatus(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		printResult(sh.out, sh.tab, "Updated", row)
	case "action":
		if len(args) < 2 {
			return errors.New("usage: action <id> <action> key=value...")
		}
		body, err := resource.ParseFields(args[2:])
		if err != nil {
			return err
		}
		row, err := sh.tab.Action(ctx, args[0], args[1], body)
		if err != nil {
			return err
		}
		printResult(sh.out, sh.tab, "Updated", row)
	default:
		return fmt.Errorf("unknown command %q, type 'help'", cmd)
	}

	return nil
}

// use switches tabs. The previous table is closed so its in flight
// responses are dropped, and the new one is loaded.
func (sh *shell) use(ctx context.Context, name string) error {
	d, ok := models.Lookup(name)
	if !ok {
		return fmt.Errorf("unknown resource %q", name)
	}

	sh.unmount()
	sh.tab = d.Open(sh.env.client)

	log.Debug().Str("tab", d.Name).Msg("tab opened")

	rows, err := sh.tab.Load(ctx)
	if err != nil {
		fmt.Fprintf(sh.out, "Failed to load %s, run 'load' to retry.\n", d.Name)
		return err
	}
	printRows(sh.out, sh.tab, rows)
	return nil
}

func (sh *shell) help() {
	fmt.Fprint(sh.out, `Commands:
  use <resource>             open a resource tab
  tabs                       list resources
  load                       reload the current tab
  within <scope> <id>        load only one parent's entities, e.g. within post <id>
  show                       print the visible rows
  filter [text]              filter rows, empty clears
  status-filter [status]     filter by status, empty or "all" clears
  create key=value...        create an entity
  update <id> key=value...   update an entity
  delete <id>                delete an entity
  status <id> <status>       change an entity's status
  action <id> <name> k=v...  run a resource action
  stats                      dashboard counters
  profile                    admin profile
  logout                     end the session
  exit                       leave the shell
`)
}
