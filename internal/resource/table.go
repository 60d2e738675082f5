package resource

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfeidau/admindash/internal/apiclient"
	"github.com/wolfeidau/admindash/internal/telemetry"
)

var (
	// ErrCancelled is returned when the operator declines a confirmation.
	ErrCancelled = errors.New("cancelled")

	// ErrClosed is returned for operations whose table was closed before
	// the response arrived. The response is discarded.
	ErrClosed = errors.New("table closed")
)

// Entity is anything held by a Table.
type Entity interface {
	EntityID() string
}

// Stateful entities carry a workflow status and take part in status
// filtering.
type Stateful interface {
	EntityStatus() string
}

// Transport performs a JSON request and returns the raw 2xx body.
// *apiclient.Client satisfies it.
type Transport interface {
	Do(ctx context.Context, method, path string, body any) ([]byte, error)
}

// Ops is the set of operations a resource supports.
type Ops uint8

const (
	OpList Ops = 1 << iota
	OpCreate
	OpUpdate
	OpDelete
	OpStatus
	OpAction

	OpsCRUD = OpList | OpCreate | OpUpdate | OpDelete
)

func (o Ops) Has(op Ops) bool { return o&op == op }

func (o Ops) String() string {
	var names []string
	for _, op := range []struct {
		op   Ops
		name string
	}{
		{OpList, "list"}, {OpCreate, "create"}, {OpUpdate, "update"},
		{OpDelete, "delete"}, {OpStatus, "status"}, {OpAction, "action"},
	} {
		if o.Has(op.op) {
			names = append(names, op.name)
		}
	}
	return strings.Join(names, ",")
}

// StatusStyle selects how a status change is sent.
type StatusStyle int

const (
	// StatusViaUpdate sends PUT <path>/<id> {"status": s}.
	StatusViaUpdate StatusStyle = iota
	// StatusViaAction sends POST <path>/update-status {<IDField>: id, "status": s}.
	StatusViaAction
)

// Config describes one backend collection.
type Config[T Entity] struct {
	Name         string
	Path         string
	Required     []string
	SearchFields func(T) []string
	Statuses     []string
	StatusStyle  StatusStyle
	StatusField  string // defaults to "status"
	IDField      string // id key in action bodies, defaults to "id"
	Actions      []string
	Ops          Ops

	// Scopes maps a parent name to the entity field holding the parent's
	// id, e.g. "post" -> "blogId" for comments.
	Scopes map[string]string

	Columns []string
	Row     func(T) []string
}

// WithDefaults returns a copy of c with unset fields defaulted.
func (c Config[T]) WithDefaults() Config[T] {
	if c.StatusField == "" {
		c.StatusField = "status"
	}
	if c.IDField == "" {
		c.IDField = "id"
	}
	if c.Ops == 0 {
		c.Ops = OpsCRUD
	}
	return c
}

// Table is the client side view of a collection. All mutations are
// pessimistic: local state changes only after the backend confirms.
//
// Table is safe for concurrent use. The lock is never held across a
// request, so concurrent mutations of the same entity resolve in
// response order.
type Table[T Entity] struct {
	cfg       Config[T]
	transport Transport

	mu         sync.Mutex
	items      []T
	query      string
	status     string
	generation uint64
}

func NewTable[T Entity](cfg Config[T], transport Transport) *Table[T] {
	return &Table[T]{cfg: cfg.WithDefaults(), transport: transport}
}

// Config returns the table's configuration.
func (t *Table[T]) Config() Config[T] { return t.cfg }

// Load replaces the collection with the backend's. On failure the previous
// collection is kept.
func (t *Table[T]) Load(ctx context.Context) (items []T, err error) {
	op := t.op("load")
	ctx, span := t.start(ctx, op)
	defer func() { telemetry.End(span, err) }()

	if err := t.check(OpList, op); err != nil {
		return nil, err
	}
	return t.load(ctx, op, t.cfg.Path)
}

// LoadScoped replaces the collection with the entities belonging to one
// parent, such as the comments on a single blog post. scope must be one of
// the configured Scopes; the request goes to <path>/<scope>/<id>.
func (t *Table[T]) LoadScoped(ctx context.Context, scope, id string) (items []T, err error) {
	op := t.op("load")
	ctx, span := t.start(ctx, op, attribute.String("scope", scope))
	defer func() { telemetry.End(span, err) }()

	if err := t.check(OpList, op); err != nil {
		return nil, err
	}
	if _, ok := t.cfg.Scopes[scope]; !ok {
		return nil, apiclient.NewValidationError(op, "%s cannot be scoped by %q", t.cfg.Name, scope)
	}
	if id == "" {
		return nil, apiclient.NewValidationError(op, "%s id is required", scope)
	}
	return t.load(ctx, op, t.cfg.Path+"/"+url.PathEscape(scope)+"/"+url.PathEscape(id))
}

func (t *Table[T]) load(ctx context.Context, op, path string) ([]T, error) {
	gen := t.gen()

	raw, err := t.transport.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, withOp(op, err)
	}

	items, err := apiclient.DecodeList[T](raw)
	if err != nil {
		return nil, withOp(op, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if gen != t.generation {
		return nil, ErrClosed
	}
	t.items = items

	log.Debug().Str("resource", t.cfg.Name).Str("path", path).Int("count", len(items)).Msg("collection loaded")

	return t.visibleLocked(), nil
}

// Counts tallies the whole collection by status, ignoring the filters.
// Every configured status is present, so zero counts show too. Statuses
// outside the configured set are counted under their own name.
func (t *Table[T]) Counts() map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.cfg.Statuses) == 0 {
		return nil
	}

	counts := make(map[string]int, len(t.cfg.Statuses))
	for _, status := range t.cfg.Statuses {
		counts[status] = 0
	}
	for _, item := range t.items {
		if s, ok := any(item).(Stateful); ok {
			counts[strings.ToLower(s.EntityStatus())]++
		}
	}
	return counts
}

// SetFilter sets the free text query and returns the visible subset.
func (t *Table[T]) SetFilter(query string) []T {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.query = query
	return t.visibleLocked()
}

// SetStatusFilter restricts the visible subset to one status. "" or "all"
// removes the restriction.
func (t *Table[T]) SetStatusFilter(status string) []T {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status = status
	return t.visibleLocked()
}

// Visible returns the entities matching the current filters, in
// collection order.
func (t *Table[T]) Visible() []T {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.visibleLocked()
}

// Items returns the whole collection.
func (t *Table[T]) Items() []T {
	t.mu.Lock()
	defer t.mu.Unlock()

	return slices.Clone(t.items)
}

func (t *Table[T]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.items)
}

// Get returns the entity with id, if loaded.
func (t *Table[T]) Get(id string) (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if i := t.indexLocked(id); i >= 0 {
		return t.items[i], true
	}
	var zero T
	return zero, false
}

// Create validates draft locally and posts it. The backend's entity is
// appended on success. When the backend does not echo the entity the
// collection is reloaded instead and the zero value is returned.
func (t *Table[T]) Create(ctx context.Context, draft Fields) (_ T, err error) {
	var zero T
	op := t.op("create")
	ctx, span := t.start(ctx, op)
	defer func() { telemetry.End(span, err) }()

	if err := t.check(OpCreate, op); err != nil {
		return zero, err
	}
	if missing := draft.Missing(t.cfg.Required); len(missing) > 0 {
		return zero, apiclient.NewValidationError(op, "missing required fields: %s", strings.Join(missing, ", "))
	}
	gen := t.gen()

	raw, err := t.transport.Do(ctx, http.MethodPost, t.cfg.Path, draft)
	if err != nil {
		return zero, withOp(op, err)
	}

	entity, ok, err := apiclient.DecodeEntity[T](raw)
	if err != nil {
		return zero, withOp(op, err)
	}
	if !ok || entity.EntityID() == "" {
		if _, err := t.Load(ctx); err != nil {
			return zero, err
		}
		return zero, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if gen != t.generation {
		return zero, ErrClosed
	}
	t.items = append(t.items, entity)

	return entity, nil
}

// Update sends patch for id and replaces the entity with the confirmed
// version. The local entity is untouched on failure.
func (t *Table[T]) Update(ctx context.Context, id string, patch Fields) (T, error) {
	var zero T
	op := t.op("update")
	if err := t.check(OpUpdate, op); err != nil {
		return zero, err
	}
	if id == "" {
		return zero, apiclient.NewValidationError(op, "id is required")
	}
	if len(patch) == 0 {
		return zero, apiclient.NewValidationError(op, "nothing to update")
	}

	return t.mutate(ctx, op, http.MethodPut, t.itemPath(id), patch, id, patch)
}

// Remove deletes id after confirm approves. Declining returns ErrCancelled
// without contacting the backend.
func (t *Table[T]) Remove(ctx context.Context, id string, confirm Confirmer) (err error) {
	op := t.op("delete")
	ctx, span := t.start(ctx, op, attribute.String("id", id))
	defer func() { telemetry.End(span, err) }()

	if err := t.check(OpDelete, op); err != nil {
		return err
	}
	if id == "" {
		return apiclient.NewValidationError(op, "id is required")
	}
	if confirm == nil || !confirm.Confirm(fmt.Sprintf("Delete %s %s?", t.singular(), id)) {
		return ErrCancelled
	}
	gen := t.gen()

	if _, err := t.transport.Do(ctx, http.MethodDelete, t.itemPath(id), nil); err != nil {
		return withOp(op, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if gen != t.generation {
		return ErrClosed
	}
	if i := t.indexLocked(id); i >= 0 {
		t.items = slices.Delete(t.items, i, i+1)
	}

	return nil
}

// TransitionStatus moves id to status, which must be one of the
// configured statuses. Order between statuses is not enforced.
func (t *Table[T]) TransitionStatus(ctx context.Context, id, status string) (T, error) {
	var zero T
	op := t.op("status")
	if err := t.check(OpStatus, op); err != nil {
		return zero, err
	}
	if id == "" {
		return zero, apiclient.NewValidationError(op, "id is required")
	}
	if !slices.Contains(t.cfg.Statuses, status) {
		return zero, apiclient.NewValidationError(op, "invalid status %q, expected one of: %s",
			status, strings.Join(t.cfg.Statuses, ", "))
	}

	patch := Fields{t.cfg.StatusField: status}

	if t.cfg.StatusStyle == StatusViaAction {
		body := Fields{t.cfg.IDField: id, t.cfg.StatusField: status}
		return t.mutate(ctx, op, http.MethodPost, t.cfg.Path+"/update-status", body, id, patch)
	}
	return t.mutate(ctx, op, http.MethodPut, t.itemPath(id), patch, id, patch)
}

// Action posts body to <path>/<action> with the entity id under IDField,
// e.g. orders' update-tracking.
func (t *Table[T]) Action(ctx context.Context, id, action string, body Fields) (T, error) {
	var zero T
	op := t.op(action)
	if err := t.check(OpAction, op); err != nil {
		return zero, err
	}
	if id == "" {
		return zero, apiclient.NewValidationError(op, "id is required")
	}
	if !slices.Contains(t.cfg.Actions, action) {
		return zero, apiclient.NewValidationError(op, "unsupported action %q", action)
	}

	payload := body.Clone()
	payload[t.cfg.IDField] = id

	return t.mutate(ctx, op, http.MethodPost, t.cfg.Path+"/"+action, payload, id, body)
}

// Close detaches the table. Responses to requests still in flight are
// discarded and the filters reset.
func (t *Table[T]) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.generation++
	t.query = ""
	t.status = ""
}

// mutate sends body and replaces entity id with the confirmed version.
// Without an entity in the response, patch is merged onto the prior value.
func (t *Table[T]) mutate(ctx context.Context, op, method, path string, body Fields, id string, patch Fields) (_ T, err error) {
	var zero T
	ctx, span := t.start(ctx, op, attribute.String("id", id))
	defer func() { telemetry.End(span, err) }()

	gen := t.gen()

	raw, err := t.transport.Do(ctx, method, path, body)
	if err != nil {
		return zero, withOp(op, err)
	}

	entity, ok, err := apiclient.DecodeEntity[T](raw)
	if err != nil {
		return zero, withOp(op, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if gen != t.generation {
		return zero, ErrClosed
	}

	i := t.indexLocked(id)
	if !ok || entity.EntityID() == "" {
		if i < 0 {
			// confirmed, but nothing local to merge onto
			return zero, nil
		}
		entity, err = merge(t.items[i], patch)
		if err != nil {
			return zero, withOp(op, err)
		}
	}

	if i >= 0 {
		t.items[i] = entity
	}

	return entity, nil
}

func (t *Table[T]) visibleLocked() []T {
	visible := make([]T, 0, len(t.items))
	for _, item := range t.items {
		if !matchStatus(item, t.status) {
			continue
		}
		if t.query != "" && t.cfg.SearchFields != nil && !Match(t.cfg.SearchFields(item), t.query) {
			continue
		}
		visible = append(visible, item)
	}
	return visible
}

func (t *Table[T]) indexLocked(id string) int {
	return slices.IndexFunc(t.items, func(item T) bool { return item.EntityID() == id })
}

func (t *Table[T]) gen() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.generation
}

func (t *Table[T]) check(op Ops, name string) error {
	if !t.cfg.Ops.Has(op) {
		return apiclient.NewValidationError(name, "%s does not support %s", t.cfg.Name, op)
	}
	return nil
}

func (t *Table[T]) itemPath(id string) string {
	return t.cfg.Path + "/" + url.PathEscape(id)
}

func (t *Table[T]) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("resource", t.cfg.Name))
	return telemetry.Tracer().Start(ctx, op, trace.WithAttributes(attrs...))
}

func (t *Table[T]) op(action string) string {
	return t.cfg.Name + "." + action
}

func (t *Table[T]) singular() string {
	return strings.TrimSuffix(t.cfg.Name, "s")
}

// withOp relabels backend errors with the table operation that caused them.
func withOp(op string, err error) error {
	var apiErr *apiclient.Error
	if errors.As(err, &apiErr) {
		relabelled := *apiErr
		relabelled.Op = op
		return &relabelled
	}
	return &apiclient.Error{Kind: apiclient.KindUnknown, Op: op, Err: err}
}
