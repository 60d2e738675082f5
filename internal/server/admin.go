package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	apihttp "github.com/wolfeidau/admindash/internal/http"
	"github.com/wolfeidau/admindash/internal/login"
	"github.com/wolfeidau/admindash/internal/models"
	"github.com/wolfeidau/admindash/internal/store"
)

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	claims, _ := login.SessionFromContext(r.Context())

	admin, err := s.admins.Get(r.Context(), claims.Subject)
	if err != nil {
		s.adminError(w, r, err)
		return
	}

	apihttp.WriteData(w, r, http.StatusOK, admin)
}

type profileRequest struct {
	Name     *string `json:"name"`
	Phone    *string `json:"phone"`
	Password *string `json:"password"`
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	claims, _ := login.SessionFromContext(r.Context())

	var req profileRequest
	if err := apihttp.DecodeJSON(w, r, &req); err != nil {
		apihttp.WriteError(w, r, http.StatusBadRequest, "Request body must be a JSON object")
		return
	}

	patch := store.ProfilePatch{Phone: req.Phone}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			apihttp.WriteError(w, r, http.StatusBadRequest, "Name cannot be empty")
			return
		}
		patch.Name = &name
	}
	if req.Password != nil {
		hash, err := login.HashPassword(*req.Password)
		if err != nil {
			apihttp.WriteError(w, r, http.StatusBadRequest, "Password must be at least 8 characters")
			return
		}
		patch.PasswordHash = &hash
	}

	admin, err := s.admins.UpdateProfile(r.Context(), claims.Subject, patch)
	if err != nil {
		s.adminError(w, r, err)
		return
	}

	zerolog.Ctx(r.Context()).Info().Str("email", admin.Email).Msg("Admin profile updated")
	apihttp.WriteJSON(w, r, http.StatusOK, apihttp.Envelope{Success: true, Message: "Profile updated", Data: admin})
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.stats(r.Context())
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to compute stats")
		apihttp.WriteError(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	apihttp.WriteData(w, r, http.StatusOK, stats)
}

// stats counts each dashboard collection. Users are the distinct
// customers that have placed orders.
func (s *Server) stats(ctx context.Context) (*models.Stats, error) {
	var stats models.Stats

	counters := []struct {
		collection string
		dst        *int
	}{
		{"images", &stats.Images},
		{"courses", &stats.Courses},
		{"services", &stats.Services},
		{"blogs", &stats.Blogs},
		{"testimonials", &stats.Testimonials},
		{"comments", &stats.Comments},
		{"contacts", &stats.Contacts},
	}
	for _, c := range counters {
		n, err := s.docs.Count(ctx, c.collection)
		if err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", c.collection, err)
		}
		*c.dst = n
	}

	orders, err := s.docs.List(ctx, "orders")
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	customers := make(map[string]struct{})
	for _, order := range orders {
		user, _ := order["user"].(map[string]any)
		if email, _ := user["email"].(string); email != "" {
			customers[store.NormalizeEmail(email)] = struct{}{}
		}
	}
	stats.Users = len(customers)

	return &stats, nil
}

func (s *Server) adminError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, store.ErrAdminNotFound) {
		apihttp.WriteError(w, r, http.StatusNotFound, "Account not found")
		return
	}

	zerolog.Ctx(r.Context()).Error().Err(err).Msg("Admin store operation failed")
	apihttp.WriteError(w, r, http.StatusInternalServerError, "Internal server error")
}
