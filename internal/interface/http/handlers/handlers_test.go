package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/user"
)

func identityOf(t *testing.T, h http.HandlerFunc, header map[string]string) (*httptest.ResponseRecorder, Identity, bool) {
	t.Helper()
	var (
		got Identity
		ok  bool
	)
	next := func(w http.ResponseWriter, r *http.Request) {
		got, ok = IdentityFromContext(r.Context())
		h(w, r)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	IdentityMiddleware(http.HandlerFunc(next)).ServeHTTP(rec, req)
	return rec, got, ok
}

func ok200(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

func TestIdentityMiddleware_ReadsHeaders(t *testing.T) {
	_, id, ok := identityOf(t, ok200, map[string]string{HeaderUserID: " u-1 ", HeaderUserRole: "ADMIN"})
	require.True(t, ok)
	assert.Equal(t, "u-1", id.UserID)
	assert.True(t, id.IsAdmin())

	_, id, ok = identityOf(t, ok200, map[string]string{HeaderUserID: "u-2", HeaderUserRole: "root"})
	require.True(t, ok)
	assert.Equal(t, user.RoleStudent, id.Role)

	_, _, ok = identityOf(t, ok200, nil)
	assert.False(t, ok)
}

func TestRequireIdentityAndAdmin(t *testing.T) {
	rec, _, _ := identityOf(t, RequireIdentity(ok200), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"unauthorized"`)

	rec, _, _ = identityOf(t, RequireIdentity(ok200), map[string]string{HeaderUserID: "u-1"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _, _ = identityOf(t, RequireAdmin(ok200), map[string]string{HeaderUserID: "u-1", HeaderUserRole: "student"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _, _ = identityOf(t, RequireAdmin(ok200), map[string]string{HeaderUserID: "u-1", HeaderUserRole: "admin"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestSizeLimit(t *testing.T) {
	h := RequestSizeLimitMiddleware(8)(http.HandlerFunc(ok200))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":"0123456789"}`)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestChain_FirstIsOutermost(t *testing.T) {
	var order []string
	mw := func(name string) MiddlewareFunc {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(mw("a"), mw("b"), SecurityHeadersMiddleware)(http.HandlerFunc(ok200))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"a", "b"}, order)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestCompositeHealthChecker(t *testing.T) {
	c := NewCompositeHealthChecker("v1")
	st := c.Check(context.Background())
	assert.True(t, st.Healthy)
	assert.True(t, st.Ready)

	c.AddCritical("store", func(context.Context) error { return nil })
	c.AddOptional("broker", func(context.Context) error { return errors.New("no servers available") })
	st = c.Check(context.Background())
	assert.False(t, st.Healthy)
	assert.True(t, st.Ready)
	assert.Equal(t, "degraded: broker", st.Message)
	assert.Equal(t, "no servers available", st.Checks["broker"].Message)

	c.SetTimeout(10 * time.Millisecond)
	c.AddCritical("store", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	st = c.Check(context.Background())
	assert.False(t, st.Ready)
	assert.Equal(t, "checks failed: broker, store", st.Message)
	assert.True(t, st.Checks["store"].Critical)
}
