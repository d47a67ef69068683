package datagouv

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nroussel/accidash/internal/observability"
)

// failingTransport errors on every request, proving no network call happened
// when acquisition succeeds anyway.
type failingTransport struct{}

func (failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, errors.New("network disabled in this test")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, opts ...Option) *Client {
	t.Helper()
	return NewClient(5*time.Second, discardLogger(), observability.NewMetricsForTesting(), opts...)
}

func TestFetch_Download(t *testing.T) {
	body := "Num_Acc;grav\n202200000001;2\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, body) //nolint:errcheck
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "users.csv")
	c := newTestClient(t)

	err := c.Fetch(context.Background(), "users", Source{URL: srv.URL, Dest: dest})
	require.NoError(t, err)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, body, string(got))
}

func TestFetch_SkipsWhenFilePresent(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "users.csv")
	require.NoError(t, os.WriteFile(dest, []byte("cached"), 0o644))

	c := newTestClient(t, WithHTTPClient(&http.Client{Transport: failingTransport{}}))

	err := c.Fetch(context.Background(), "users", Source{URL: "http://unreachable.invalid/users.csv", Dest: dest})
	require.NoError(t, err, "cached file must satisfy acquisition without any network request")

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "cached", string(got), "cached file must not be overwritten")
}

func TestFetch_HTTPErrorNamesDataset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "locations.csv")
	c := newTestClient(t)

	err := c.Fetch(context.Background(), "locations", Source{URL: srv.URL, Dest: dest})
	require.Error(t, err)

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "locations", fe.Dataset)
	assert.Equal(t, http.StatusNotFound, fe.Status)

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr), "failed fetch must not leave a destination file")
}

func TestFetch_NetworkErrorLeavesNoPartialFile(t *testing.T) {
	c := newTestClient(t, WithHTTPClient(&http.Client{Transport: failingTransport{}}))

	dir := t.TempDir()
	dest := filepath.Join(dir, "characteristics.csv")
	err := c.Fetch(context.Background(), "characteristics", Source{URL: "http://unreachable.invalid/c.csv", Dest: dest})
	require.Error(t, err)

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "characteristics", fe.Dataset)

	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	assert.Empty(t, entries, "no destination or temp files after a failed fetch")
}

func TestFetchAll_AbortsOnFirstFailure(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	dir := t.TempDir()
	sources := map[string]Source{
		"characteristics": {URL: srv.URL, Dest: filepath.Join(dir, "characteristics.csv")},
		"locations":       {URL: srv.URL, Dest: filepath.Join(dir, "locations.csv")},
		"users":           {URL: srv.URL, Dest: filepath.Join(dir, "users.csv")},
	}

	c := newTestClient(t)
	err := c.FetchAll(context.Background(), sources)
	require.Error(t, err)

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "characteristics", fe.Dataset, "sources are fetched in sorted order")
	assert.Equal(t, 1, hits, "acquisition aborts on the first failed dataset")
}

func TestFetchAll_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "header\nrow\n") //nolint:errcheck
	}))
	defer srv.Close()

	dir := t.TempDir()
	sources := map[string]Source{
		"characteristics": {URL: srv.URL + "/c.csv", Dest: filepath.Join(dir, "characteristics.csv")},
		"locations":       {URL: srv.URL + "/l.csv", Dest: filepath.Join(dir, "locations.csv")},
		"users":           {URL: srv.URL + "/u.csv", Dest: filepath.Join(dir, "users.csv")},
	}

	c := newTestClient(t)
	require.NoError(t, c.FetchAll(context.Background(), sources))

	for name, src := range sources {
		_, err := os.Stat(src.Dest)
		assert.NoErrorf(t, err, "dataset %s should be on disk", name)
	}
}
