package resource

import (
	"context"
	"maps"
	"slices"
)

// Row is an entity rendered for display.
type Row struct {
	ID    string
	Cells []string
}

// Controller is the type erased face of a Table, used where the entity
// type is picked at runtime (the CLI).
type Controller interface {
	Name() string
	Columns() []string
	Statuses() []string
	Actions() []string
	Supports(op Ops) bool

	Scopes() []string

	Load(ctx context.Context) ([]Row, error)
	LoadScoped(ctx context.Context, scope, id string) ([]Row, error)
	SetFilter(query string) []Row
	SetStatusFilter(status string) []Row
	Visible() []Row
	Len() int
	Counts() map[string]int

	Create(ctx context.Context, draft Fields) (Row, error)
	Update(ctx context.Context, id string, patch Fields) (Row, error)
	Remove(ctx context.Context, id string, confirm Confirmer) error
	TransitionStatus(ctx context.Context, id, status string) (Row, error)
	Action(ctx context.Context, id, action string, body Fields) (Row, error)
	Close()
}

// Bind exposes t as a Controller.
func Bind[T Entity](t *Table[T]) Controller {
	return &binding[T]{table: t}
}

type binding[T Entity] struct {
	table *Table[T]
}

func (b *binding[T]) Name() string         { return b.table.cfg.Name }
func (b *binding[T]) Columns() []string    { return b.table.cfg.Columns }
func (b *binding[T]) Statuses() []string   { return b.table.cfg.Statuses }
func (b *binding[T]) Actions() []string    { return b.table.cfg.Actions }
func (b *binding[T]) Supports(op Ops) bool { return b.table.cfg.Ops.Has(op) }
func (b *binding[T]) Len() int             { return b.table.Len() }
func (b *binding[T]) Close()               { b.table.Close() }

func (b *binding[T]) Counts() map[string]int { return b.table.Counts() }

func (b *binding[T]) Load(ctx context.Context) ([]Row, error) {
	items, err := b.table.Load(ctx)
	if err != nil {
		return nil, err
	}
	return b.rows(items), nil
}

func (b *binding[T]) LoadScoped(ctx context.Context, scope, id string) ([]Row, error) {
	items, err := b.table.LoadScoped(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	return b.rows(items), nil
}

// Scopes lists the parents the collection can be scoped by, sorted.
func (b *binding[T]) Scopes() []string {
	return slices.Sorted(maps.Keys(b.table.cfg.Scopes))
}

func (b *binding[T]) SetFilter(query string) []Row {
	return b.rows(b.table.SetFilter(query))
}

func (b *binding[T]) SetStatusFilter(status string) []Row {
	return b.rows(b.table.SetStatusFilter(status))
}

func (b *binding[T]) Visible() []Row {
	return b.rows(b.table.Visible())
}

func (b *binding[T]) Create(ctx context.Context, draft Fields) (Row, error) {
	return b.row(b.table.Create(ctx, draft))
}

func (b *binding[T]) Update(ctx context.Context, id string, patch Fields) (Row, error) {
	return b.row(b.table.Update(ctx, id, patch))
}

func (b *binding[T]) Remove(ctx context.Context, id string, confirm Confirmer) error {
	return b.table.Remove(ctx, id, confirm)
}

func (b *binding[T]) TransitionStatus(ctx context.Context, id, status string) (Row, error) {
	return b.row(b.table.TransitionStatus(ctx, id, status))
}

func (b *binding[T]) Action(ctx context.Context, id, action string, body Fields) (Row, error) {
	return b.row(b.table.Action(ctx, id, action, body))
}

func (b *binding[T]) row(entity T, err error) (Row, error) {
	if err != nil {
		return Row{}, err
	}
	if entity.EntityID() == "" {
		return Row{}, nil
	}
	return b.render(entity), nil
}

func (b *binding[T]) rows(items []T) []Row {
	rows := make([]Row, 0, len(items))
	for _, item := range items {
		rows = append(rows, b.render(item))
	}
	return rows
}

func (b *binding[T]) render(entity T) Row {
	row := Row{ID: entity.EntityID()}
	if b.table.cfg.Row != nil {
		row.Cells = b.table.cfg.Row(entity)
	}
	return row
}
