package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfeidau/admindash/internal/apiclient"
	"github.com/wolfeidau/admindash/internal/auth"
	"github.com/wolfeidau/admindash/internal/login"
	"github.com/wolfeidau/admindash/internal/models"
	"github.com/wolfeidau/admindash/internal/resource"
	"github.com/wolfeidau/admindash/internal/store"
	"github.com/wolfeidau/admindash/internal/store/memory"
)

const (
	testEmail    = "admin@example.com"
	testPassword = "correct-horse"
)

type testEnv struct {
	url  string
	docs *memory.DocumentStore
}

func newTestServer(t *testing.T, seed bool) *testEnv {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	docs := memory.NewDocumentStore()
	admins := memory.NewAdminStore()
	_, err := login.EnsureAdmin(ctx, admins, "Ada", testEmail, testPassword)
	require.NoError(t, err)

	if seed {
		require.NoError(t, Seed(ctx, docs))
	}

	signer, err := auth.NewSigner([]byte("0123456789abcdef0123456789abcdef"), time.Hour)
	require.NoError(t, err)

	srv := NewServer(docs, admins, login.New(admins, signer, auth.NewRevocations(ctx, time.Minute)))
	ts := httptest.NewServer(srv.Handler(zerolog.Nop(), Options{CORSOrigins: []string{"https://dash.example.com"}}))
	t.Cleanup(ts.Close)

	return &testEnv{url: ts.URL, docs: docs}
}

// browser returns a cookie aware client that has logged in.
func (e *testEnv) browser(t *testing.T) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	c := &http.Client{Jar: jar}

	resp := e.do(t, c, http.MethodPost, "/admin/login", `{"email":"`+testEmail+`","password":"`+testPassword+`"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return c
}

func (e *testEnv) do(t *testing.T, c *http.Client, method, path, body string, header http.Header) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, e.url+path, reader)
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeEnvelope(t *testing.T, resp *http.Response) (bool, string, json.RawMessage) {
	t.Helper()
	var env struct {
		Success bool            `json:"success"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return env.Success, env.Message, env.Data
}

func TestServer_RequiresSession(t *testing.T) {
	env := newTestServer(t, true)

	for _, path := range []string{"/product", "/order", "/admin/stats", "/admin/profile"} {
		t.Run(path, func(t *testing.T) {
			resp := env.do(t, http.DefaultClient, http.MethodGet, path, "", nil)
			require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			ok, msg, _ := decodeEnvelope(t, resp)
			assert.False(t, ok)
			assert.Equal(t, "Not authorized", msg)
		})
	}

	t.Run("health is public", func(t *testing.T) {
		resp := env.do(t, http.DefaultClient, http.MethodGet, "/health", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestServer_ListETag(t *testing.T) {
	env := newTestServer(t, true)
	c := env.browser(t)

	resp := env.do(t, c, http.MethodGet, "/product", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "private, no-cache", resp.Header.Get("Cache-Control"))
	etag := resp.Header.Get("ETag")
	require.NotEmpty(t, etag)

	ok, _, data := decodeEnvelope(t, resp)
	require.True(t, ok)
	products, err := apiclient.DecodeList[models.Product](data)
	require.NoError(t, err)
	require.Len(t, products, 3)
	assert.Equal(t, "Acetone", products[0].ChemicalName)
	assert.Equal(t, "58.08", products[0].MolecularWeight.String())

	resp = env.do(t, c, http.MethodGet, "/product", "", http.Header{"If-None-Match": {etag}})
	require.Equal(t, http.StatusNotModified, resp.StatusCode)

	resp = env.do(t, c, http.MethodPost, "/product",
		`{"ChemicalName":"Toluene","CatelogNumber":"TL-1","CASNumber":"108-88-3","MolecularWeight":92.14}`, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.do(t, c, http.MethodGet, "/product", "", http.Header{"If-None-Match": {etag}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEqual(t, etag, resp.Header.Get("ETag"))
}

func TestServer_Validation(t *testing.T) {
	env := newTestServer(t, true)
	c := env.browser(t)

	t.Run("missing required fields", func(t *testing.T) {
		resp := env.do(t, c, http.MethodPost, "/product", `{"ChemicalName":"Toluene","CASNumber":" "}`, nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		_, msg, _ := decodeEnvelope(t, resp)
		assert.Equal(t, "Missing required fields: CatelogNumber, CASNumber, MolecularWeight", msg)
	})

	t.Run("body must be an object", func(t *testing.T) {
		resp := env.do(t, c, http.MethodPost, "/product", `[1,2]`, nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("invalid status", func(t *testing.T) {
		docs, err := env.docs.List(context.Background(), "blogs")
		require.NoError(t, err)
		resp := env.do(t, c, http.MethodPut, "/blog/admin/"+docs[0].ID(), `{"status":"published"}`, nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("status only resources reject other fields", func(t *testing.T) {
		docs, err := env.docs.List(context.Background(), "comments")
		require.NoError(t, err)
		resp := env.do(t, c, http.MethodPut, "/comment/admin/"+docs[0].ID(), `{"comment":"edited"}`, nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unknown id", func(t *testing.T) {
		resp := env.do(t, c, http.MethodDelete, "/product/nope", "", nil)
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
		_, msg, _ := decodeEnvelope(t, resp)
		assert.Equal(t, "Product not found", msg)
	})

	t.Run("unsupported operation", func(t *testing.T) {
		resp := env.do(t, c, http.MethodPost, "/contactus", `{"name":"x"}`, nil)
		require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})
}

func TestServer_Stats(t *testing.T) {
	env := newTestServer(t, true)
	c := env.browser(t)

	resp := env.do(t, c, http.MethodGet, "/admin/stats", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, _, data := decodeEnvelope(t, resp)
	var stats models.Stats
	require.NoError(t, json.Unmarshal(data, &stats))
	assert.Equal(t, models.Stats{
		Images: 1, Courses: 1, Services: 2, Blogs: 2, Testimonials: 1, Comments: 2, Contacts: 1, Users: 2,
	}, stats)
}

func TestServer_Profile(t *testing.T) {
	env := newTestServer(t, false)
	c := env.browser(t)

	resp := env.do(t, c, http.MethodPut, "/admin/profile", `{"name":"Ada Lovelace","phone":"555-0100"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, c, http.MethodGet, "/admin/profile", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_, _, data := decodeEnvelope(t, resp)

	var profile models.AdminProfile
	require.NoError(t, json.Unmarshal(data, &profile))
	assert.Equal(t, "Ada Lovelace", profile.Name)
	assert.Equal(t, "555-0100", profile.Phone)
	assert.Equal(t, testEmail, profile.Email)

	resp = env.do(t, c, http.MethodPut, "/admin/profile", `{"name":"  "}`, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, c, http.MethodPut, "/admin/profile", `{"password":"short"}`, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_Logout(t *testing.T) {
	env := newTestServer(t, false)
	c := env.browser(t)

	resp := env.do(t, c, http.MethodGet, "/admin/validate", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, c, http.MethodPost, "/admin/logout", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, c, http.MethodGet, "/admin/validate", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServer_CORS(t *testing.T) {
	env := newTestServer(t, false)

	resp := env.do(t, http.DefaultClient, http.MethodOptions, "/product", "", http.Header{
		"Origin":                        {"https://dash.example.com"},
		"Access-Control-Request-Method": {http.MethodGet},
	})
	assert.Equal(t, "https://dash.example.com", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
}

func TestServer_CrossOriginProtection(t *testing.T) {
	env := newTestServer(t, false)
	c := env.browser(t)
	body := `{"ChemicalName":"Toluene","CatelogNumber":"TL-1","CASNumber":"108-88-3","MolecularWeight":92.14}`

	t.Run("foreign origin is rejected", func(t *testing.T) {
		resp := env.do(t, c, http.MethodPost, "/product", body, http.Header{
			"Origin":         {"https://evil.example.com"},
			"Sec-Fetch-Site": {"cross-site"},
		})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		docs, err := env.docs.List(context.Background(), "products")
		require.NoError(t, err)
		assert.Empty(t, docs)
	})

	t.Run("foreign origin without fetch metadata is rejected", func(t *testing.T) {
		resp := env.do(t, c, http.MethodDelete, "/product/anything", "", http.Header{
			"Origin": {"https://evil.example.com"},
		})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("trusted dashboard origin is allowed", func(t *testing.T) {
		resp := env.do(t, c, http.MethodPost, "/product", body, http.Header{
			"Origin":         {"https://dash.example.com"},
			"Sec-Fetch-Site": {"cross-site"},
		})
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
	})

	t.Run("reads are never blocked", func(t *testing.T) {
		resp := env.do(t, c, http.MethodGet, "/product", "", http.Header{
			"Origin":         {"https://evil.example.com"},
			"Sec-Fetch-Site": {"cross-site"},
		})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("clients without browser headers pass", func(t *testing.T) {
		resp := env.do(t, c, http.MethodPost, "/product", body, nil)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
	})
}

// The resource tables drive the server through the real API client.
func TestServer_ResourceTables(t *testing.T) {
	ctx := context.Background()
	env := newTestServer(t, true)

	client, err := apiclient.New(apiclient.Config{ServerURL: env.url, NoCache: true})
	require.NoError(t, err)
	_, err = client.Login(ctx, testEmail, testPassword)
	require.NoError(t, err)

	open := func(t *testing.T, name string) resource.Controller {
		t.Helper()
		d, ok := models.Lookup(name)
		require.True(t, ok)
		ctrl := d.Open(client)
		t.Cleanup(ctrl.Close)
		return ctrl
	}

	t.Run("products crud", func(t *testing.T) {
		products := open(t, "products")

		rows, err := products.Load(ctx)
		require.NoError(t, err)
		require.Len(t, rows, 3)

		created, err := products.Create(ctx, resource.Fields{
			"ChemicalName": "Toluene", "CatelogNumber": "TL-1", "CASNumber": "108-88-3", "MolecularWeight": "92.14",
		})
		require.NoError(t, err)
		require.NotEmpty(t, created.ID)
		assert.Equal(t, 4, products.Len())

		updated, err := products.Update(ctx, created.ID, resource.Fields{"inStock": true})
		require.NoError(t, err)
		assert.Equal(t, "in stock", updated.Cells[len(updated.Cells)-1])

		require.NoError(t, products.Remove(ctx, created.ID, resource.AlwaysConfirm))
		assert.Equal(t, 3, products.Len())

		_, err = products.Update(ctx, created.ID, resource.Fields{"inStock": false})
		require.ErrorIs(t, err, apiclient.ErrNotFound)
	})

	t.Run("order status and tracking", func(t *testing.T) {
		orders := open(t, "orders")

		rows, err := orders.Load(ctx)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		id := rows[0].ID

		row, err := orders.TransitionStatus(ctx, id, models.OrderAccepted)
		require.NoError(t, err)
		assert.Contains(t, row.Cells, models.OrderAccepted)

		row, err = orders.Action(ctx, id, models.ActionUpdateTracking, resource.Fields{"trackingURL": "https://t.example/1"})
		require.NoError(t, err)
		assert.Contains(t, row.Cells, "https://t.example/1")

		stored, err := env.docs.Get(ctx, "orders", id)
		require.NoError(t, err)
		assert.Equal(t, models.OrderAccepted, stored.String("status"))
		assert.Equal(t, "https://t.example/1", stored.String("trackingURL"))
	})

	t.Run("comment moderation", func(t *testing.T) {
		comments := open(t, "comments")

		rows, err := comments.Load(ctx)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, map[string]int{models.ModerationPending: 1, models.ModerationApproved: 1}, comments.Counts())

		pending := comments.SetStatusFilter(models.ModerationPending)
		require.Len(t, pending, 1)
		_, err = comments.TransitionStatus(ctx, pending[0].ID, models.ModerationApproved)
		require.NoError(t, err)
		assert.Len(t, comments.SetStatusFilter(models.ModerationApproved), 2)
		assert.Empty(t, comments.SetStatusFilter(models.ModerationPending))
		assert.Equal(t, map[string]int{models.ModerationPending: 0, models.ModerationApproved: 2}, comments.Counts())
	})

	t.Run("comments on one post", func(t *testing.T) {
		blogs, err := env.docs.List(ctx, "blogs")
		require.NoError(t, err)
		require.Len(t, blogs, 2)

		comments := open(t, "comments")
		assert.Equal(t, []string{"post"}, comments.Scopes())

		for i, blog := range blogs {
			rows, err := comments.LoadScoped(ctx, "post", blog.ID())
			require.NoError(t, err)
			require.Len(t, rows, 1, "blog %d", i)
			assert.Equal(t, blog.ID(), rows[0].Cells[1])
		}

		rows, err := comments.LoadScoped(ctx, "post", "no-such-post")
		require.NoError(t, err)
		assert.Empty(t, rows)
		assert.Zero(t, comments.Len())

		_, err = comments.LoadScoped(ctx, "author", "x")
		require.ErrorIs(t, err, apiclient.ErrValidation)
	})

	t.Run("filter", func(t *testing.T) {
		careers := open(t, "careers")

		_, err := careers.Load(ctx)
		require.NoError(t, err)
		assert.Len(t, careers.SetFilter("hyderabad"), 1)
		assert.Len(t, careers.SetFilter(""), 2)
	})
}

func TestSeed_ResolvesReferences(t *testing.T) {
	ctx := context.Background()

	t.Run("to documents seeded in the same run", func(t *testing.T) {
		docs := memory.NewDocumentStore()
		require.NoError(t, Seed(ctx, docs))

		blogs, err := docs.List(ctx, "blogs")
		require.NoError(t, err)
		comments, err := docs.List(ctx, "comments")
		require.NoError(t, err)
		require.Len(t, comments, 2)
		assert.Equal(t, blogs[0].ID(), comments[0].String("blogId"))
		assert.Equal(t, blogs[1].ID(), comments[1].String("blogId"))
	})

	t.Run("to documents that already existed", func(t *testing.T) {
		docs := memory.NewDocumentStore()
		first, err := docs.Create(ctx, "blogs", store.Document{"title": "Kept", "content": "x"})
		require.NoError(t, err)
		second, err := docs.Create(ctx, "blogs", store.Document{"title": "Also kept", "content": "y"})
		require.NoError(t, err)

		require.NoError(t, Seed(ctx, docs))

		comments, err := docs.List(ctx, "comments")
		require.NoError(t, err)
		require.Len(t, comments, 2)
		assert.Equal(t, first.ID(), comments[0].String("blogId"))
		assert.Equal(t, second.ID(), comments[1].String("blogId"))
	})

	t.Run("dangling reference fails", func(t *testing.T) {
		docs := memory.NewDocumentStore()
		_, err := docs.Create(ctx, "blogs", store.Document{"title": "Only one", "content": "x"})
		require.NoError(t, err)

		require.ErrorContains(t, Seed(ctx, docs), `reference "@blogs:1" in blogId: blogs has 1 documents`)
	})
}

func TestServer_CommentsByPost(t *testing.T) {
	env := newTestServer(t, true)
	c := env.browser(t)

	blogs, err := env.docs.List(context.Background(), "blogs")
	require.NoError(t, err)

	resp := env.do(t, c, http.MethodGet, "/comment/admin/post/"+blogs[1].ID(), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("ETag"))

	ok, _, data := decodeEnvelope(t, resp)
	require.True(t, ok)
	comments, err := apiclient.DecodeList[models.Comment](data)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "Ines", comments[0].Name)
	assert.Equal(t, blogs[1].ID(), comments[0].BlogID)

	resp = env.do(t, http.DefaultClient, http.MethodGet, "/comment/admin/post/"+blogs[1].ID(), "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSeed(t *testing.T) {
	ctx := context.Background()
	docs := memory.NewDocumentStore()

	_, err := docs.Create(ctx, "products", store.Document{"ChemicalName": "Existing"})
	require.NoError(t, err)

	require.NoError(t, Seed(ctx, docs))
	require.NoError(t, Seed(ctx, docs))

	n, err := docs.Count(ctx, "products")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "non-empty collections are not seeded")

	for _, name := range models.Names() {
		n, err := docs.Count(ctx, name)
		require.NoError(t, err)
		assert.Positive(t, n, name)
	}
}
