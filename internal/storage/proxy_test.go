package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidates(t *testing.T) {
	c := NewClient(Options{GoogleAPIKey: "key"})

	tests := []struct {
		name   string
		source string
		want   []string
	}{
		{
			name:   "sheet with gid fragment",
			source: "https://docs.google.com/spreadsheets/d/abc_123/edit#gid=42",
			want: []string{
				"https://docs.google.com/spreadsheets/d/abc_123/export?format=csv&gid=42",
				"https://docs.google.com/spreadsheets/d/abc_123/gviz/tq?tqx=out:csv&gid=42",
			},
		},
		{
			name:   "drive file link",
			source: "https://drive.google.com/file/d/FILE-1/view?usp=sharing",
			want: []string{
				"https://drive.google.com/uc?export=download&id=FILE-1",
				"https://drive.usercontent.google.com/download?id=FILE-1&export=download&confirm=t",
				"https://www.googleapis.com/drive/v3/files/FILE-1?alt=media",
			},
		},
		{
			name:   "drive open link",
			source: "https://drive.google.com/open?id=FILE-2",
			want: []string{
				"https://drive.google.com/uc?export=download&id=FILE-2",
				"https://drive.usercontent.google.com/download?id=FILE-2&export=download&confirm=t",
				"https://www.googleapis.com/drive/v3/files/FILE-2?alt=media",
			},
		},
		{
			name:   "s3 object",
			source: "s3://my-bucket/data/rows 1.csv",
			want: []string{
				"https://my-bucket.s3.amazonaws.com/data/rows%201.csv",
				"https://s3.amazonaws.com/my-bucket/data/rows%201.csv",
			},
		},
		{
			name:   "plain url",
			source: "https://example.com/data.csv",
			want:   []string{"https://example.com/data.csv"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Candidates(tt.source)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Candidates() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCandidatesWithoutAPIKeySkipsDriveAPI(t *testing.T) {
	got, err := NewClient(Options{}).Candidates("https://drive.google.com/file/d/X/view")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestCandidatesS3Endpoint(t *testing.T) {
	got, err := NewClient(Options{S3Endpoint: "http://minio:9000/"}).Candidates("s3://bucket/a/b.csv")
	require.NoError(t, err)
	assert.Equal(t, []string{"http://minio:9000/bucket/a/b.csv"}, got)
}

func TestCandidatesInvalid(t *testing.T) {
	c := NewClient(Options{})
	for _, source := range []string{"", "not a url", "ftp://host/file.csv", "s3://bucket-only", "https://drive.google.com/drive/my-drive"} {
		_, err := c.Candidates(source)
		assert.ErrorIs(t, err, ErrInvalidSource, source)
	}
}

func TestFetchFirstFallsBack(t *testing.T) {
	var mu sync.Mutex
	var hits []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits = append(hits, r.URL.Path)
		mu.Unlock()
		switch r.URL.Path {
		case "/missing":
			http.NotFound(w, r)
		case "/interstitial":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte("<html>virus scan warning</html>"))
		case "/file":
			w.Header().Set("Content-Type", "text/csv")
			w.Write([]byte("a,b\n1,2\n"))
		}
	}))
	defer srv.Close()

	c := NewClient(Options{})
	obj, err := c.fetchFirst(context.Background(), []string{srv.URL + "/missing", srv.URL + "/interstitial", srv.URL + "/file"})
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/file", obj.URL)
	assert.Equal(t, "a,b\n1,2\n", string(obj.Body))
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"/missing", "/interstitial", "/file"}, hits)
}

func TestFetchFirstAllFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewClient(Options{}).fetchFirst(context.Background(), []string{srv.URL + "/a", srv.URL + "/b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 2 candidates failed")
	assert.Contains(t, err.Error(), "HTTP 403")
}

func TestFetchTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer srv.Close()

	_, err := NewClient(Options{MaxBytes: 16}).Fetch(context.Background(), srv.URL+"/big.csv")
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestCandidatesWithCallerTokenIncludesDriveAPI(t *testing.T) {
	got, err := NewClient(Options{}).candidates("https://drive.google.com/file/d/X/view", true)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "https://www.googleapis.com/drive/v3/files/X?alt=media", got[2])
}

func TestFetchDriveAPIKeepsKeyOutOfURL(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.Query().Get("key"))
		gotKey = r.Header.Get("X-Goog-Api-Key")
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte("text\nrow\n"))
	}))
	defer srv.Close()

	c := NewClient(Options{GoogleAPIKey: "server-secret", DriveBaseURL: srv.URL})
	obj, err := c.fetchFirst(context.Background(), []string{srv.URL + "/drive/v3/files/abc?alt=media"})
	require.NoError(t, err)
	assert.Equal(t, "server-secret", gotKey)
	assert.NotContains(t, obj.URL, "server-secret")
}

func TestFetchDriveAPIPrefersCallerToken(t *testing.T) {
	var auth, key string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth, key = r.Header.Get("Authorization"), r.Header.Get("X-Goog-Api-Key")
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte("text\nrow\n"))
	}))
	defer srv.Close()

	c := NewClient(Options{GoogleAPIKey: "server-secret", DriveBaseURL: srv.URL})
	ctx := WithAccessToken(context.Background(), "user-token")
	_, err := c.fetchFirst(ctx, []string{srv.URL + "/drive/v3/files/abc?alt=media"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer user-token", auth)
	assert.Empty(t, key)
}
