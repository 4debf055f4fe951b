package nom_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "github.com/teamcatalog/catalog-auth/internal/errors"
	"github.com/teamcatalog/catalog-auth/nom"
)

type nomConfig struct {
	baseURL string
}

func (c nomConfig) GetNomBaseURL() string { return c.baseURL }
func (c nomConfig) GetNomToken() string   { return "nom-test-token" }

func TestGetByIdent(t *testing.T) {
	t.Run("resolves and caches", func(t *testing.T) {
		var calls atomic.Int64
		var gotPath, gotAuth string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			gotPath = r.URL.Path
			gotAuth = r.Header.Get("Authorization")
			_, _ = w.Write([]byte(`{"navident":"A123456","visningsnavn":"Test Person","epost":"test@example.com"}`))
		}))
		defer srv.Close()
		client := nom.NewClient(nomConfig{baseURL: srv.URL})

		for i := 0; i < 3; i++ {
			resource, found, err := client.GetByIdent(context.Background(), "A123456")
			require.NoError(t, err)
			require.True(t, found)
			require.Equal(t, "Test Person", resource.Name)
			require.Equal(t, "test@example.com", resource.Email)
		}
		require.EqualValues(t, 1, calls.Load())
		require.Equal(t, "/ressurs/A123456", gotPath)
		require.Equal(t, "Bearer nom-test-token", gotAuth)
	})

	t.Run("caches unknown ident as absent", func(t *testing.T) {
		var calls atomic.Int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()
		client := nom.NewClient(nomConfig{baseURL: srv.URL})

		for i := 0; i < 3; i++ {
			resource, found, err := client.GetByIdent(context.Background(), "Z999999")
			require.NoError(t, err)
			require.False(t, found)
			require.Nil(t, resource)
		}
		require.EqualValues(t, 1, calls.Load())
	})

	t.Run("server error is not cached", func(t *testing.T) {
		var calls atomic.Int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()
		client := nom.NewClient(nomConfig{baseURL: srv.URL})

		for i := 0; i < 2; i++ {
			_, _, err := client.GetByIdent(context.Background(), "A123456")
			require.Error(t, err)
			require.ErrorIs(t, err, apperrors.ErrRemoteCall)
		}
		require.EqualValues(t, 2, calls.Load())
	})
}

func TestEmailForIdent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"navident":"A123456","visningsnavn":"Test Person","epost":"test@example.com"}`))
	}))
	defer srv.Close()
	client := nom.NewClient(nomConfig{baseURL: srv.URL})

	email, found, err := client.EmailForIdent(context.Background(), "A123456")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "test@example.com", email)
}
