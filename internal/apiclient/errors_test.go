package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindForStatus(t *testing.T) {
	tests := []struct {
		status int
		want   Kind
	}{
		{http.StatusBadRequest, KindValidation},
		{http.StatusUnprocessableEntity, KindValidation},
		{http.StatusUnauthorized, KindAuth},
		{http.StatusForbidden, KindAuth},
		{http.StatusNotFound, KindNotFound},
		{http.StatusConflict, KindUnknown},
		{http.StatusInternalServerError, KindServer},
		{http.StatusServiceUnavailable, KindServer},
		{http.StatusTeapot, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, KindForStatus(tt.status))
		})
	}
}

func TestError(t *testing.T) {
	t.Run("matches its sentinel only", func(t *testing.T) {
		err := fmt.Errorf("wrapped: %w", &Error{Kind: KindNotFound, Op: "products.update", Status: 404})
		require.ErrorIs(t, err, ErrNotFound)
		assert.NotErrorIs(t, err, ErrAuth)
		assert.Equal(t, KindNotFound, KindOf(err))
	})

	t.Run("message formatting", func(t *testing.T) {
		err := &Error{Kind: KindAuth, Op: "products.load", Status: 401, Message: "Invalid token"}
		assert.Equal(t, "products.load: Invalid token (status 401)", err.Error())

		err = NewValidationError("products.create", "missing required fields: %s", "CASNumber")
		assert.Equal(t, "products.create: missing required fields: CASNumber", err.Error())

		assert.Equal(t, "server error", (&Error{Kind: KindServer}).Error())
	})

	t.Run("kind of a plain error is unknown", func(t *testing.T) {
		assert.Equal(t, KindUnknown, KindOf(errors.New("boom")))
	})

	t.Run("timeouts are network errors", func(t *testing.T) {
		err := transportError("GET /order", context.DeadlineExceeded)
		require.ErrorIs(t, err, ErrNetwork)
		require.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Contains(t, err.Error(), "timed out")
	})

	t.Run("status errors keep the server message", func(t *testing.T) {
		err := statusError("POST /admin/login", 401, []byte(`{"success":false,"message":"Invalid email or password"}`))
		assert.Equal(t, KindAuth, err.Kind)
		assert.Equal(t, "Invalid email or password", err.Message)

		err = statusError("GET /order", 502, []byte(`<html>bad gateway</html>`))
		assert.Equal(t, "Bad Gateway", err.Message)
	})
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "validation", KindValidation.String())
	assert.Equal(t, "network", KindNetwork.String())
	assert.Equal(t, "unknown", Kind(42).String())
}
