package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/wolfeidau/admindash/internal/resource"
)

// ListCmd loads a resource and prints the rows matching the filters.
type ListCmd struct {
	Resource string `arg:"" help:"Resource name, see 'admindash resources'"`
	Filter   string `short:"f" help:"Case insensitive text filter"`
	Status   string `short:"s" help:"Only show entities with this status"`
	Post     string `help:"Only load the comments on this blog post id"`
}

func (l *ListCmd) Run(ctx context.Context, globals *Globals) error {
	return protected(ctx, globals, l.Resource, func(ctx context.Context, ctrl resource.Controller) error {
		load := ctrl.Load
		if l.Post != "" {
			load = func(ctx context.Context) ([]resource.Row, error) {
				return ctrl.LoadScoped(ctx, "post", l.Post)
			}
		}
		if _, err := load(ctx); err != nil {
			return friendly(err)
		}

		ctrl.SetStatusFilter(l.Status)
		rows := ctrl.SetFilter(l.Filter)

		printRows(globals.stdout(), ctrl, rows)
		return nil
	})
}

// CreateCmd posts a new entity.
type CreateCmd struct {
	Resource string   `arg:"" help:"Resource name"`
	Fields   []string `arg:"" optional:"" help:"Fields as key=value or key:=json"`
}

func (c *CreateCmd) Run(ctx context.Context, globals *Globals) error {
	draft, err := resource.ParseFields(c.Fields)
	if err != nil {
		return err
	}

	return protected(ctx, globals, c.Resource, func(ctx context.Context, ctrl resource.Controller) error {
		row, err := ctrl.Create(ctx, draft)
		if err != nil {
			return friendly(err)
		}
		printResult(globals.stdout(), ctrl, "Created", row)
		return nil
	})
}

// UpdateCmd patches an existing entity.
type UpdateCmd struct {
	Resource string   `arg:"" help:"Resource name"`
	ID       string   `arg:"" help:"Entity id"`
	Fields   []string `arg:"" help:"Fields as key=value or key:=json"`
}

func (u *UpdateCmd) Run(ctx context.Context, globals *Globals) error {
	patch, err := resource.ParseFields(u.Fields)
	if err != nil {
		return err
	}

	return protected(ctx, globals, u.Resource, func(ctx context.Context, ctrl resource.Controller) error {
		// loaded first so a patch-only response can be merged onto the entity
		if _, err := ctrl.Load(ctx); err != nil {
			return friendly(err)
		}
		row, err := ctrl.Update(ctx, u.ID, patch)
		if err != nil {
			return friendly(err)
		}
		printResult(globals.stdout(), ctrl, "Updated", row)
		return nil
	})
}

// DeleteCmd removes an entity after confirmation.
type DeleteCmd struct {
	Resource string `arg:"" help:"Resource name"`
	ID       string `arg:"" help:"Entity id"`
	Yes      bool   `short:"y" help:"Do not ask for confirmation"`
}

func (d *DeleteCmd) Run(ctx context.Context, globals *Globals) error {
	confirm := resource.AlwaysConfirm
	if !d.Yes {
		confirm = resource.PromptConfirmer(globals.stdin(), globals.stdout())
	}

	return protected(ctx, globals, d.Resource, func(ctx context.Context, ctrl resource.Controller) error {
		if err := ctrl.Remove(ctx, d.ID, confirm); err != nil {
			return friendly(err)
		}
		fmt.Fprintf(globals.stdout(), "Deleted %s %s\n", ctrl.Name(), d.ID)
		return nil
	})
}

// SetStatusCmd moves an entity through its workflow.
type SetStatusCmd struct {
	Resource string `arg:"" help:"Resource name"`
	ID       string `arg:"" help:"Entity id"`
	Status   string `arg:"" help:"New status"`
	Yes      bool   `short:"y" help:"Do not ask for confirmation"`
}

func (s *SetStatusCmd) Run(ctx context.Context, globals *Globals) error {
	confirm := resource.AlwaysConfirm
	if !s.Yes {
		confirm = resource.PromptConfirmer(globals.stdin(), globals.stdout())
	}

	return protected(ctx, globals, s.Resource, func(ctx context.Context, ctrl resource.Controller) error {
		if !confirm.Confirm(fmt.Sprintf("Set %s %s to %q?", ctrl.Name(), s.ID, s.Status)) {
			return resource.ErrCancelled
		}
		if _, err := ctrl.Load(ctx); err != nil {
			return friendly(err)
		}
		row, err := ctrl.TransitionStatus(ctx, s.ID, s.Status)
		if err != nil {
			return friendly(err)
		}
		printResult(globals.stdout(), ctrl, "Updated", row)
		return nil
	})
}

// ActionCmd runs a resource specific action such as update-tracking.
type ActionCmd struct {
	Resource string   `arg:"" help:"Resource name"`
	ID       string   `arg:"" help:"Entity id"`
	Action   string   `arg:"" help:"Action name"`
	Fields   []string `arg:"" optional:"" help:"Fields as key=value or key:=json"`
}

func (a *ActionCmd) Run(ctx context.Context, globals *Globals) error {
	body, err := resource.ParseFields(a.Fields)
	if err != nil {
		return err
	}

	return protected(ctx, globals, a.Resource, func(ctx context.Context, ctrl resource.Controller) error {
		if _, err := ctrl.Load(ctx); err != nil {
			return friendly(err)
		}
		row, err := ctrl.Action(ctx, a.ID, a.Action, body)
		if err != nil {
			return friendly(err)
		}
		printResult(globals.stdout(), ctrl, "Updated", row)
		return nil
	})
}

func printRows(out io.Writer, ctrl resource.Controller, rows []resource.Row) {
	if len(rows) == 0 {
		if ctrl.Len() == 0 {
			fmt.Fprintf(out, "No %s found.\n", ctrl.Name())
		} else {
			fmt.Fprintf(out, "No %s match the current filters (%d loaded).\n", ctrl.Name(), ctrl.Len())
		}
		return
	}

	printTable(out, ctrl.Columns(), rows)
	fmt.Fprintf(out, "\n%d of %d %s\n", len(rows), ctrl.Len(), ctrl.Name())
	printCounts(out, ctrl)
}

// printCounts summarises every loaded entity by status, in workflow order.
func printCounts(out io.Writer, ctrl resource.Controller) {
	counts := ctrl.Counts()
	if len(counts) == 0 {
		return
	}

	parts := make([]string, 0, len(counts))
	for _, status := range ctrl.Statuses() {
		parts = append(parts, fmt.Sprintf("%s %d", status, counts[status]))
	}
	fmt.Fprintf(out, "Status: %s\n", strings.Join(parts, ", "))
}

func printTable(out io.Writer, columns []string, rows []resource.Row) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(columns, "\t"))
	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row.Cells, "\t"))
	}
	w.Flush()
}

// printResult reports a confirmed mutation. Backends that do not echo the
// entity leave row empty.
func printResult(out io.Writer, ctrl resource.Controller, verb string, row resource.Row) {
	if row.ID == "" {
		fmt.Fprintf(out, "%s %s.\n", verb, ctrl.Name())
		return
	}
	fmt.Fprintf(out, "%s %s %s\n", verb, ctrl.Name(), row.ID)
	printTable(out, ctrl.Columns(), []resource.Row{row})
}
