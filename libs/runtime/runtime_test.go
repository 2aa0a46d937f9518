package runtime

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadiness_Transitions(t *testing.T) {
	r := NewReadiness()
	var seen []bool
	r.OnChange(func(ready bool) { seen = append(seen, ready) })

	require.ErrorIs(t, r.Check(context.Background()), ErrNotReady)

	r.MarkReady()
	r.MarkReady()
	assert.True(t, r.Ready())
	assert.NoError(t, r.Check(context.Background()))

	r.MarkNotReady()
	assert.False(t, r.Ready())

	// initial call, then one call per actual transition
	assert.Equal(t, []bool{false, true, false}, seen)
}

func TestBaseMux_Readyz(t *testing.T) {
	r := NewReadiness()
	mux := NewBaseMux(
		ReadyCheck{Name: "init", Check: r.Check},
		ReadyCheck{Name: "skipped"},
	)

	rw := httptest.NewRecorder()
	mux.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rw.Code)
	assert.Contains(t, rw.Body.String(), "init: service not ready")

	r.MarkReady()
	rw = httptest.NewRecorder()
	mux.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rw.Code)

	rw = httptest.NewRecorder()
	mux.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rw.Code)
}

func TestBaseMux_UnnamedFailure(t *testing.T) {
	mux := NewBaseMux(ReadyCheck{Check: func(context.Context) error { return errors.New("down") }})
	rw := httptest.NewRecorder()
	mux.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, "dependency: down", rw.Body.String())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLevel("debug").String())
	assert.Equal(t, "WARN", parseLevel(" Warning ").String())
	assert.Equal(t, "INFO", parseLevel("nonsense").String())
}
