package router

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/searchktools/lean-server/core/http"
)

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Insert("GET", "/echo/{message}", tag("get")))
	require.NoError(t, r.Insert("POST", "/echo/{message}", tag("post")))

	h, params := r.Lookup("GET", "/echo/hello")
	assert.Equal(t, tag("get"), h)
	assert.Equal(t, Params{"message": "hello"}, params)

	h, _ = r.Lookup("POST", "/echo/hello")
	assert.Equal(t, tag("post"), h)

	t.Run("unknown method falls back to not found", func(t *testing.T) {
		h, params := r.Lookup("DELETE", "/echo/hello")
		assert.Equal(t, http.NotFound, h)
		assert.NotNil(t, params)
		assert.Empty(t, params)
	})

	t.Run("unmatched path falls back to not found", func(t *testing.T) {
		h, params := r.Lookup("GET", "/other")
		assert.Equal(t, http.NotFound, h)
		assert.Empty(t, params)
	})
}

func TestRegistryNotFoundResponse(t *testing.T) {
	h, _ := NewRegistry().Lookup("GET", "/missing")

	res, err := h.Serve(context.Background(), &http.Request{}, nil)
	require.NoError(t, err)

	resp := res.Respond(&http.Request{})
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Equal(t, "Not Found", string(resp.Body))
}

func TestRegistryInsertErrors(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Insert("GET", "/a/{id}", tag("a")))

	assert.ErrorIs(t, r.Insert("GET", "/a/{id}", tag("b")), ErrDuplicateRoute)
	assert.ErrorIs(t, r.Insert("GET", "//a/{id}/", tag("b")), ErrDuplicateRoute)
	assert.NoError(t, r.Insert("PUT", "/a/{id}", tag("b")))
	assert.ErrorIs(t, r.Insert("GET", "/a/{name}/x", tag("c")), ErrParamConflict)
	assert.ErrorIs(t, r.Insert("GET", "/b", nil), ErrNilHandler)

	r.Freeze()
	assert.True(t, r.Frozen())
	assert.ErrorIs(t, r.Insert("GET", "/late", tag("late")), ErrFrozen)
	assert.ErrorIs(t, r.SetNotFound(tag("nf")), ErrFrozen)
	assert.ErrorIs(t, r.Extend(NewRegistry()), ErrFrozen)
}

func TestRegistryExtend(t *testing.T) {
	api := NewRegistry()
	require.NoError(t, api.Insert("GET", "/users", tag("users")))

	admin := NewRegistry()
	require.NoError(t, admin.Insert("GET", "/admin", tag("admin")))
	require.NoError(t, admin.Insert("DELETE", "/users/{id}", tag("delete")))

	require.NoError(t, api.Extend(admin))

	h, _ := api.Lookup("GET", "/users")
	assert.Equal(t, tag("users"), h)
	h, _ = api.Lookup("GET", "/admin")
	assert.Equal(t, tag("admin"), h)
	h, params := api.Lookup("DELETE", "/users/9")
	assert.Equal(t, tag("delete"), h)
	assert.Equal(t, "9", params["id"])
}

func TestRegistryExtendConflict(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Insert("GET", "/users/{id}", tag("get")))

	other := NewRegistry()
	require.NoError(t, other.Insert("POST", "/new", tag("new")))
	require.NoError(t, other.Insert("GET", "/extra", tag("extra")))
	require.NoError(t, other.Insert("GET", "/users/{name}", tag("conflict")))

	require.ErrorIs(t, r.Extend(other), ErrParamConflict)

	h, _ := r.Lookup("POST", "/new")
	assert.Equal(t, http.NotFound, h)
	h, _ = r.Lookup("GET", "/extra")
	assert.Equal(t, http.NotFound, h)

	h, params := r.Lookup("GET", "/users/3")
	assert.Equal(t, tag("get"), h)
	assert.Equal(t, Params{"id": "3"}, params)
	assert.Equal(t, []RouteInfo{{Method: "GET", Pattern: "/users/{id}"}}, r.Routes())
}

func TestRegistrySetNotFound(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.SetNotFound(tag("custom")))
	assert.ErrorIs(t, r.SetNotFound(nil), ErrNilHandler)

	h, _ := r.Lookup("GET", "/x")
	assert.Equal(t, tag("custom"), h)
}

// wrapped records the handler it decorates
type wrapped struct {
	inner http.Handler
}

func (w wrapped) Serve(ctx context.Context, req *http.Request, p *http.Payload) (http.Responder, error) {
	return w.inner.Serve(ctx, req, p)
}

func TestRegistryWrap(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Insert("GET", "/a", tag("a")))
	require.NoError(t, r.Insert("GET", "/d/**", tag("d")))

	require.NoError(t, r.Wrap(func(h http.Handler) http.Handler {
		return wrapped{inner: h}
	}))

	h, _ := r.Lookup("GET", "/a")
	assert.Equal(t, wrapped{inner: tag("a")}, h)

	h, _ = r.Lookup("GET", "/d/x/y")
	assert.Equal(t, wrapped{inner: tag("d")}, h)

	h, _ = r.Lookup("GET", "/none")
	assert.Equal(t, wrapped{inner: http.NotFound}, h)

	r.Freeze()
	assert.ErrorIs(t, r.Wrap(func(h http.Handler) http.Handler { return h }), ErrFrozen)
}

func TestRegistryWrapRoutes(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Insert("GET", "/users/{id}", tag("get")))
	require.NoError(t, r.Insert("POST", "/files/**", tag("upload")))

	var seen []RouteInfo
	require.NoError(t, r.WrapRoutes(func(info RouteInfo, h http.Handler) http.Handler {
		seen = append(seen, info)
		return h
	}))

	assert.ElementsMatch(t, []RouteInfo{
		{Method: "GET", Pattern: "/users/{id}"},
		{Method: "POST", Pattern: "/files/**"},
		{},
	}, seen)
}

func TestRegistryRoutes(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Insert("POST", "/users", tag("create")))
	require.NoError(t, r.Insert("GET", "/users", tag("list")))
	require.NoError(t, r.Insert("GET", "/users/{id}", tag("get")))
	require.NoError(t, r.Insert("GET", "/static/**", tag("static")))
	require.NoError(t, r.Insert("GET", "/", tag("root")))

	assert.Equal(t, []RouteInfo{
		{Method: "GET", Pattern: "/"},
		{Method: "GET", Pattern: "/static/**"},
		{Method: "GET", Pattern: "/users"},
		{Method: "POST", Pattern: "/users"},
		{Method: "GET", Pattern: "/users/{id}"},
	}, r.Routes())
}
