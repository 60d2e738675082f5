package commands

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/wolfeidau/admindash/internal/models"
	"github.com/wolfeidau/admindash/internal/resource"
)

// StatsCmd prints the dashboard counters.
type StatsCmd struct{}

func (s *StatsCmd) Run(ctx context.Context, globals *Globals) error {
	e, err := newEnv(globals)
	if err != nil {
		return err
	}

	return e.guard(ctx, func(ctx context.Context) error {
		return friendly(showStats(ctx, e, globals.stdout()))
	})
}

func showStats(ctx context.Context, e *env, out io.Writer) error {
	var stats models.Stats
	if err := e.client.Stats(ctx, &stats); err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RESOURCE\tCOUNT")
	for _, row := range []struct {
		name  string
		count int
	}{
		{"users", stats.Users},
		{"blogs", stats.Blogs},
		{"comments", stats.Comments},
		{"testimonials", stats.Testimonials},
		{"contacts", stats.Contacts},
		{"services", stats.Services},
		{"courses", stats.Courses},
		{"images", stats.Images},
	} {
		fmt.Fprintf(w, "%s\t%d\n", row.name, row.count)
	}
	return w.Flush()
}

// ProfileCmd shows or edits the signed in admin.
type ProfileCmd struct {
	Show   ProfileShowCmd   `cmd:"" default:"1" help:"Show the admin profile"`
	Update ProfileUpdateCmd `cmd:"" help:"Update the admin profile"`
}

type ProfileShowCmd struct{}

func (p *ProfileShowCmd) Run(ctx context.Context, globals *Globals) error {
	e, err := newEnv(globals)
	if err != nil {
		return err
	}

	return e.guard(ctx, func(ctx context.Context) error {
		var profile models.AdminProfile
		if err := e.client.Profile(ctx, &profile); err != nil {
			return friendly(err)
		}
		printProfile(globals.stdout(), &profile)
		return nil
	})
}

type ProfileUpdateCmd struct {
	Fields []string `arg:"" help:"Fields as key=value or key:=json"`
}

func (p *ProfileUpdateCmd) Run(ctx context.Context, globals *Globals) error {
	patch, err := resource.ParseFields(p.Fields)
	if err != nil {
		return err
	}

	e, err := newEnv(globals)
	if err != nil {
		return err
	}

	return e.guard(ctx, func(ctx context.Context) error {
		var profile models.AdminProfile
		if err := e.client.UpdateProfile(ctx, patch, &profile); err != nil {
			return friendly(err)
		}
		printProfile(globals.stdout(), &profile)
		return nil
	})
}

func printProfile(out io.Writer, p *models.AdminProfile) {
	fmt.Fprintf(out, "Name:    %s\n", p.Name)
	fmt.Fprintf(out, "Email:   %s\n", p.Email)
	if p.Phone != "" {
		fmt.Fprintf(out, "Phone:   %s\n", p.Phone)
	}
	if p.Role != "" {
		fmt.Fprintf(out, "Role:    %s\n", p.Role)
	}
	if !p.CreatedAt.IsZero() {
		fmt.Fprintf(out, "Created: %s\n", p.CreatedAt.Format("2006-01-02"))
	}
}

// ResourcesCmd lists the managed resources.
type ResourcesCmd struct{}

func (r *ResourcesCmd) Run(ctx context.Context, globals *Globals) error {
	w := tabwriter.NewWriter(globals.stdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tPATH\tOPERATIONS\tSTATUSES")
	for _, d := range models.Resources() {
		statuses := "-"
		if len(d.Statuses) > 0 {
			statuses = fmt.Sprint(d.Statuses)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.Name, d.Path, d.Ops, statuses)
	}
	return w.Flush()
}
