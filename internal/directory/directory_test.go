package directory_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gdex-tools/datahelp-router/internal/dataset"
	"github.com/gdex-tools/datahelp-router/internal/directory"
)

func serve(t *testing.T, status int, body string) (*directory.Client, *string) {
	t.Helper()

	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)

	return directory.New(directory.Options{URL: srv.URL + "/api/datasets/{id}/contacts"}, nil), &path
}

func TestResolve(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		status    int
		body      string
		wantOwner string
		wantOK    bool
	}{
		{
			name:      "FirstRecordWins",
			status:    http.StatusOK,
			body:      `{"data":[{"email":"owner@example.org"},{"email":"second@example.org"}]}`,
			wantOwner: "owner@example.org",
			wantOK:    true,
		},
		{
			name:   "NoRecords",
			status: http.StatusOK,
			body:   `{"data":[]}`,
		},
		{
			name:   "MissingDataKey",
			status: http.StatusOK,
			body:   `{}`,
		},
		{
			name:   "EmptyEmail",
			status: http.StatusOK,
			body:   `{"data":[{"email":"  "}]}`,
		},
		{
			name:   "NullEmail",
			status: http.StatusOK,
			body:   `{"data":[{"email":null,"name":"x"}]}`,
		},
		{
			name:   "NotFoundStatus",
			status: http.StatusNotFound,
			body:   `{"error":"unknown dataset"}`,
		},
		{
			name:   "ServerError",
			status: http.StatusInternalServerError,
			body:   `oops`,
		},
		{
			name:   "MalformedBody",
			status: http.StatusOK,
			body:   `<html>maintenance</html>`,
		},
		{
			name:   "WrongShape",
			status: http.StatusOK,
			body:   `{"data":{"email":"owner@example.org"}}`,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			client, path := serve(t, testCase.status, testCase.body)

			owner, ok, err := client.Resolve(context.Background(), "d123004")
			require.NoError(t, err)
			assert.Equal(t, testCase.wantOK, ok)
			assert.Equal(t, testCase.wantOwner, owner)
			assert.Equal(t, "/api/datasets/d123004/contacts", *path)
		})
	}
}

func TestResolveAppendsIDWithoutPlaceholder(t *testing.T) {
	t.Parallel()

	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		fmt.Fprint(w, `{"data":[{"email":"o@example.org"}]}`)
	}))
	t.Cleanup(srv.Close)

	client := directory.New(directory.Options{URL: srv.URL + "/lookup/"}, nil)
	owner, ok, err := client.Resolve(context.Background(), "d000001")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "o@example.org", owner)
	assert.Equal(t, "/lookup/d000001", path)
}

func TestResolveConnectionFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := directory.New(directory.Options{URL: url + "/{id}"}, nil)
	owner, ok, err := client.Resolve(context.Background(), "d123456")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, owner)
}

func TestResolveTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	client := directory.New(directory.Options{URL: srv.URL + "/{id}", Timeout: 50 * time.Millisecond}, nil)
	_, ok, err := client.Resolve(context.Background(), "d123456")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolveRejectsNonCanonicalID(t *testing.T) {
	t.Parallel()

	client := directory.New(directory.Options{URL: "http://127.0.0.1:1/{id}"}, nil)
	_, ok, err := client.Resolve(context.Background(), "ds123.4")
	require.ErrorIs(t, err, dataset.ErrInvalidID)
	assert.False(t, ok)
}
