package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReverseCachesByRoundedPoint(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/reverse", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "32.2994", r.URL.Query().Get("lat"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Write([]byte(`{"display_name":"Safi, Morocco","address":{"town":"Safi"}}`))
	}))
	defer srv.Close()

	r := NewResolver(srv.URL, 8, time.Minute)
	ctx := context.Background()

	name, err := r.Reverse(ctx, 32.2994, -9.2372)
	require.NoError(t, err)
	assert.Equal(t, "Safi", name)

	name, err = r.Reverse(ctx, 32.29941, -9.23719)
	require.NoError(t, err)
	assert.Equal(t, "Safi", name)
	assert.Equal(t, 1, calls)
}

func TestReverseFallsBackToUnknown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"address":{"country":"Morocco"}}`))
	}))
	defer srv.Close()

	name, err := NewResolver(srv.URL, 8, time.Minute).Reverse(context.Background(), 30, -8)
	require.NoError(t, err)
	assert.Equal(t, Unknown, name)
}

func TestReverseErrorsAreNotCached(t *testing.T) {
	fail := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"address":{"city":"Casablanca"}}`))
	}))
	defer srv.Close()

	r := NewResolver(srv.URL, 8, time.Minute)
	_, err := r.Reverse(context.Background(), 33.57, -7.59)
	require.Error(t, err)

	fail = false
	name, err := r.Reverse(context.Background(), 33.57, -7.59)
	require.NoError(t, err)
	assert.Equal(t, "Casablanca", name)
}
