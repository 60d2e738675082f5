package server

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	apihttp "github.com/wolfeidau/admindash/internal/http"
	"github.com/wolfeidau/admindash/internal/models"
	"github.com/wolfeidau/admindash/internal/resource"
	"github.com/wolfeidau/admindash/internal/store"
)

// collection serves one resource's REST routes. Documents live in the
// store collection named after the resource.
type collection struct {
	models.Descriptor
	s *Server
}

func (s *Server) mount(r chi.Router, d models.Descriptor) {
	c := &collection{Descriptor: d, s: s}

	if d.Ops.Has(resource.OpList) {
		r.Get(d.Path, c.list)
		for scope, field := range d.Scopes {
			r.Get(d.Path+"/"+scope+"/{parent}", c.listScoped(field))
		}
	}
	if d.Ops.Has(resource.OpCreate) {
		r.Post(d.Path, c.create)
	}
	if d.Ops.Has(resource.OpUpdate) || (d.Ops.Has(resource.OpStatus) && d.StatusStyle == resource.StatusViaUpdate) {
		r.Put(d.Path+"/{id}", c.update)
	}
	if d.Ops.Has(resource.OpDelete) {
		r.Delete(d.Path+"/{id}", c.remove)
	}
	if d.Ops.Has(resource.OpStatus) && d.StatusStyle == resource.StatusViaAction {
		r.Post(d.Path+"/update-status", c.updateStatus)
	}
	if d.Ops.Has(resource.OpAction) {
		for _, action := range d.Actions {
			r.Post(d.Path+"/"+action, c.action(action))
		}
	}
}

func (c *collection) list(w http.ResponseWriter, r *http.Request) {
	docs, err := c.s.docs.List(r.Context(), c.Name)
	if err != nil {
		c.storeError(w, r, err)
		return
	}

	writeCacheable(w, r, apihttp.Envelope{Success: true, Data: docs})
}

// listScoped lists the documents whose field holds the parent id in the
// path, e.g. the comments on one blog post.
func (c *collection) listScoped(field string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parent := chi.URLParam(r, "parent")

		docs, err := c.s.docs.List(r.Context(), c.Name)
		if err != nil {
			c.storeError(w, r, err)
			return
		}

		matched := make([]store.Document, 0, len(docs))
		for _, doc := range docs {
			if doc.String(field) == parent {
				matched = append(matched, doc)
			}
		}

		writeCacheable(w, r, apihttp.Envelope{Success: true, Data: matched})
	}
}

func (c *collection) create(w http.ResponseWriter, r *http.Request) {
	doc, ok := c.decode(w, r)
	if !ok {
		return
	}

	if missing := c.missing(doc); len(missing) > 0 {
		apihttp.WriteError(w, r, http.StatusBadRequest, "Missing required fields: "+strings.Join(missing, ", "))
		return
	}
	if len(c.Statuses) > 0 {
		if _, ok := doc[c.StatusField]; !ok {
			doc[c.StatusField] = c.Statuses[0]
		}
	}
	if msg := c.checkStatus(doc); msg != "" {
		apihttp.WriteError(w, r, http.StatusBadRequest, msg)
		return
	}

	created, err := c.s.docs.Create(r.Context(), c.Name, doc)
	if err != nil {
		c.storeError(w, r, err)
		return
	}

	c.mutated(r, "create")
	apihttp.WriteJSON(w, r, http.StatusCreated, apihttp.Envelope{
		Success: true,
		Message: fmt.Sprintf("%s created", c.title()),
		Data:    created,
	})
}

func (c *collection) update(w http.ResponseWriter, r *http.Request) {
	patch, ok := c.decode(w, r)
	if !ok {
		return
	}

	if !c.Ops.Has(resource.OpUpdate) {
		for key := range patch.Body() {
			if key != c.StatusField {
				apihttp.WriteError(w, r, http.StatusBadRequest, fmt.Sprintf("Only %s may be changed", c.StatusField))
				return
			}
		}
	}
	if blank := c.blanked(patch); len(blank) > 0 {
		apihttp.WriteError(w, r, http.StatusBadRequest, "Required fields cannot be empty: "+strings.Join(blank, ", "))
		return
	}

	c.apply(w, r, "update", chi.URLParam(r, "id"), patch)
}

func (c *collection) remove(w http.ResponseWriter, r *http.Request) {
	if err := c.s.docs.Delete(r.Context(), c.Name, chi.URLParam(r, "id")); err != nil {
		c.storeError(w, r, err)
		return
	}

	c.mutated(r, "delete")
	apihttp.WriteMessage(w, r, fmt.Sprintf("%s deleted", c.title()))
}

func (c *collection) updateStatus(w http.ResponseWriter, r *http.Request) {
	body, ok := c.decode(w, r)
	if !ok {
		return
	}

	id, ok := c.bodyID(w, r, body)
	if !ok {
		return
	}
	status, _ := body[c.StatusField].(string)
	if status == "" {
		apihttp.WriteError(w, r, http.StatusBadRequest, c.StatusField+" is required")
		return
	}

	c.apply(w, r, "status", id, store.Document{c.StatusField: status})
}

func (c *collection) action(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, ok := c.decode(w, r)
		if !ok {
			return
		}

		id, ok := c.bodyID(w, r, body)
		if !ok {
			return
		}
		delete(body, c.IDField)
		if len(body.Body()) == 0 {
			apihttp.WriteError(w, r, http.StatusBadRequest, "Nothing to update")
			return
		}

		c.apply(w, r, name, id, body)
	}
}

// apply validates the status in patch and merges it into document id.
func (c *collection) apply(w http.ResponseWriter, r *http.Request, op, id string, patch store.Document) {
	if msg := c.checkStatus(patch); msg != "" {
		apihttp.WriteError(w, r, http.StatusBadRequest, msg)
		return
	}

	updated, err := c.s.docs.Update(r.Context(), c.Name, id, patch)
	if err != nil {
		c.storeError(w, r, err)
		return
	}

	c.mutated(r, op)
	apihttp.WriteJSON(w, r, http.StatusOK, apihttp.Envelope{
		Success: true,
		Message: fmt.Sprintf("%s updated", c.title()),
		Data:    updated,
	})
}

func (c *collection) decode(w http.ResponseWriter, r *http.Request) (store.Document, bool) {
	var doc store.Document
	if err := apihttp.DecodeJSON(w, r, &doc); err != nil || doc == nil {
		apihttp.WriteError(w, r, http.StatusBadRequest, "Request body must be a JSON object")
		return nil, false
	}
	return doc, true
}

func (c *collection) bodyID(w http.ResponseWriter, r *http.Request, body store.Document) (string, bool) {
	id, _ := body[c.IDField].(string)
	if id == "" {
		apihttp.WriteError(w, r, http.StatusBadRequest, c.IDField+" is required")
		return "", false
	}
	return id, true
}

// missing lists required fields absent or blank in doc.
func (c *collection) missing(doc store.Document) []string {
	var missing []string
	for _, field := range c.Required {
		v, ok := doc[field]
		if !ok || blank(v) {
			missing = append(missing, field)
		}
	}
	return missing
}

// blanked lists required fields a patch tries to clear.
func (c *collection) blanked(patch store.Document) []string {
	var cleared []string
	for _, field := range c.Required {
		if v, ok := patch[field]; ok && blank(v) {
			cleared = append(cleared, field)
		}
	}
	return cleared
}

func (c *collection) checkStatus(doc store.Document) string {
	v, ok := doc[c.StatusField]
	if !ok || len(c.Statuses) == 0 {
		return ""
	}
	status, _ := v.(string)
	if !slices.Contains(c.Statuses, status) {
		return fmt.Sprintf("Invalid %s %v, expected one of: %s", c.StatusField, v, strings.Join(c.Statuses, ", "))
	}
	return ""
}

func (c *collection) storeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, store.ErrNotFound) {
		apihttp.WriteError(w, r, http.StatusNotFound, fmt.Sprintf("%s not found", c.title()))
		return
	}

	zerolog.Ctx(r.Context()).Error().Err(err).Str("collection", c.Name).Msg("Store operation failed")
	apihttp.WriteError(w, r, http.StatusInternalServerError, "Internal server error")
}

func (c *collection) mutated(r *http.Request, op string) {
	c.s.metrics.DocumentsMutatedTotal.Add(r.Context(), 1, metric.WithAttributes(
		attribute.String("collection", c.Name),
		attribute.String("op", op),
	))
}

func (c *collection) title() string {
	singular := c.Singular()
	if singular == "" {
		return singular
	}
	return strings.ToUpper(singular[:1]) + singular[1:]
}

func blank(v any) bool {
	switch v := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	default:
		return false
	}
}
