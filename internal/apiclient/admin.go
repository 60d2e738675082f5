package apiclient

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// LoginResult is the outcome of a successful login.
type LoginResult struct {
	Token   string
	Admin   json.RawMessage
	Cookies []*http.Cookie
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Data struct {
		Token    string          `json:"token"`
		AdminDoc json.RawMessage `json:"adminDoc"`
	} `json:"data"`
}

// Login exchanges email and password for a session. The backend sets the
// session cookie on the jar and echoes the token in the body.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	raw, err := c.Do(ctx, http.MethodPost, "/admin/login", loginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}

	var resp loginResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &Error{Kind: KindUnknown, Op: "login", Message: "unrecognised login response", Err: err}
	}
	if resp.Data.Token == "" {
		return nil, &Error{Kind: KindUnknown, Op: "login", Message: "login response missing token"}
	}

	c.mu.Lock()
	c.token = resp.Data.Token
	c.mu.Unlock()

	log.Debug().Str("email", email).Msg("login accepted")

	return &LoginResult{
		Token:   resp.Data.Token,
		Admin:   resp.Data.AdminDoc,
		Cookies: c.Cookies(),
	}, nil
}

// Validate checks the given credential against the backend. Only a 2xx
// response with {"success": true} counts as valid.
func (c *Client) Validate(ctx context.Context, token string, cookies []*http.Cookie) error {
	c.UseCredential(token, cookies)

	raw, err := c.Do(ctx, http.MethodGet, "/admin/validate", nil)
	if err != nil {
		return err
	}

	var resp struct {
		Success bool `json:"success"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return &Error{Kind: KindUnknown, Op: "validate", Message: "unrecognised validation response", Err: err}
	}
	if !resp.Success {
		return &Error{Kind: KindAuth, Op: "validate", Message: "session rejected"}
	}
	return nil
}

// Logout ends the backend session. Local credential state is reset even
// when the request fails.
func (c *Client) Logout(ctx context.Context) error {
	defer c.ResetCredential()

	_, err := c.Do(ctx, http.MethodPost, "/admin/logout", nil)
	return err
}

// Profile decodes the signed in admin's profile into out.
func (c *Client) Profile(ctx context.Context, out any) error {
	return c.getEntity(ctx, "/admin/profile", out)
}

// UpdateProfile applies patch to the profile and decodes the result into out.
func (c *Client) UpdateProfile(ctx context.Context, patch map[string]any, out any) error {
	raw, err := c.Do(ctx, http.MethodPut, "/admin/profile", patch)
	if err != nil {
		return err
	}
	return decodeInto(raw, "profile", out)
}

// Stats decodes the dashboard counters into out.
func (c *Client) Stats(ctx context.Context, out any) error {
	return c.getEntity(ctx, "/admin/stats", out)
}

func (c *Client) getEntity(ctx context.Context, path string, out any) error {
	raw, err := c.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return decodeInto(raw, path, out)
}

func decodeInto(raw []byte, op string, out any) error {
	body, ok, err := DecodeEntity[json.RawMessage](raw)
	if err != nil {
		return err
	}
	if !ok {
		return &Error{Kind: KindUnknown, Op: op, Message: "response carried no entity"}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &Error{Kind: KindUnknown, Op: op, Message: "failed to decode entity", Err: err}
	}
	return nil
}
