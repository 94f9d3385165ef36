package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{BaseURL: "https://registry.example.com"}, false},
		{"empty base URL", Config{}, true},
		{"whitespace base URL", Config{BaseURL: "   "}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/lodash/^4":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"name":"lodash","version":"4.17.21","dist":{"tarball":"x"}}`))
		case "/@types/node/latest":
			_, _ = w.Write([]byte(`{"name":"@types/node","version":"20.1.0"}`))
		case "/missing/latest":
			w.WriteHeader(http.StatusNotFound)
		case "/broken/latest":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client, err := New(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	t.Run("range specifier", func(t *testing.T) {
		m, err := client.Resolve(context.Background(), "lodash", "^4")
		require.NoError(t, err)
		assert.Equal(t, "lodash", m.Name)
		assert.Equal(t, "4.17.21", m.Version)
		assert.Contains(t, m.Raw, "dist")
	})

	t.Run("scoped name", func(t *testing.T) {
		m, err := client.Resolve(context.Background(), "@types/node", "")
		require.NoError(t, err)
		assert.Equal(t, "@types/node", m.Name)
		assert.Equal(t, "20.1.0", m.Version)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := client.Resolve(context.Background(), "missing", "")
		require.Error(t, err)
		assert.True(t, IsNotFound(err))

		var resErr *ResolutionError
		require.ErrorAs(t, err, &resErr)
		assert.Equal(t, "missing", resErr.Name)
	})

	t.Run("server error", func(t *testing.T) {
		_, err := client.Resolve(context.Background(), "broken", "")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrRegistryUnavailable)
		assert.False(t, IsNotFound(err))
	})

	t.Run("empty name", func(t *testing.T) {
		_, err := client.Resolve(context.Background(), "  ", "1.0.0")
		assert.Error(t, err)
	})
}

func TestEscapeName(t *testing.T) {
	assert.Equal(t, "lodash", escapeName("lodash"))
	assert.Equal(t, "@types/node", escapeName("@types/node"))
}
