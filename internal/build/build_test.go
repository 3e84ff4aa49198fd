package build

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gotest.tools/v3/fs"

	"github.com/kumar303/ezboot/internal/credentials"
	ehttp "github.com/kumar303/ezboot/internal/http"
)

func archive(t *testing.T, files map[string]string) []byte {
	t.Helper()

	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)
	for name, body := range files {
		h := &zip.FileHeader{Name: name, Method: zip.Deflate}
		h.SetMode(0755)
		fw, err := w.CreateHeader(h)
		require.NoError(t, err)
		_, err = fw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// buildServer serves the archives in order, one per request, repeating the last one.
type buildServer struct {
	mu       sync.Mutex
	archives [][]byte
	served   int
}

func (s *buildServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, pass, ok := r.BasicAuth()
	if !ok || user != "bob" || pass != "s3cret" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	s.mu.Lock()
	body := s.archives[min(s.served, len(s.archives)-1)]
	s.served++
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/zip")
	_, _ = w.Write(body)
}

func newFetcher() *Fetcher {
	return &Fetcher{HTTPClient: ehttp.NewRetryableClient(5 * time.Second), Out: io.Discard}
}

var bob = credentials.Credentials{Username: "bob", Password: "s3cret"}

func TestFetcher_Fetch_Unpack(t *testing.T) {
	srv := &buildServer{archives: [][]byte{archive(t, map[string]string{
		"b2g-distro/flash.sh":    "#!/bin/sh\necho flashing\n",
		"b2g-distro/sources.xml": "<manifest/>",
	})}}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	dir := fs.NewDir(t, "work")
	defer dir.Remove()

	dest := dir.Join(LastBuildDir)
	got, err := newFetcher().Fetch(context.Background(), Request{
		URL:         ts.URL + "/nightly/latest/unagi.zip",
		Credentials: bob,
		Dest:        dest,
		Unpack:      true,
		Fresh:       true,
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dest, DistroDir), got)

	assert.FileExists(t, filepath.Join(dest, "unagi.zip"))
	assert.FileExists(t, filepath.Join(got, "flash.sh"))
}

func TestFetcher_Fetch_FreshOverwrites(t *testing.T) {
	srv := &buildServer{archives: [][]byte{
		archive(t, map[string]string{"b2g-distro/flash.sh": "old", "b2g-distro/old.img": "old"}),
		archive(t, map[string]string{"b2g-distro/flash.sh": "new"}),
	}}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	dir := fs.NewDir(t, "work")
	defer dir.Remove()

	req := Request{
		URL:         ts.URL + "/unagi.zip",
		Credentials: bob,
		Dest:        dir.Join(LastBuildDir),
		Unpack:      true,
		Fresh:       true,
	}
	f := newFetcher()

	_, err := f.Fetch(context.Background(), req)
	require.NoError(t, err)
	distro, err := f.Fetch(context.Background(), req)
	require.NoError(t, err)

	b, err := os.ReadFile(filepath.Join(distro, "flash.sh"))
	require.NoError(t, err)
	assert.Equal(t, "new", string(b))
	assert.NoFileExists(t, filepath.Join(distro, "old.img"))
}

func TestFetcher_Fetch_Progress(t *testing.T) {
	payload := strings.Repeat("0123456789abcdef", 10*1024)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "163840")
		_, _ = io.WriteString(w, payload)
	}))
	defer ts.Close()

	dir := fs.NewDir(t, "downloads")
	defer dir.Remove()

	var updates []Progress
	f := newFetcher()
	f.OnProgress = func(p Progress) {
		updates = append(updates, p)
	}

	got, err := f.Fetch(context.Background(), Request{URL: ts.URL + "/build.zip", Dest: dir.Path()})
	require.NoError(t, err)
	assert.Equal(t, dir.Join("build.zip"), got)

	info, err := os.Stat(got)
	require.NoError(t, err)
	require.NotEmpty(t, updates)

	var prev int64
	for _, u := range updates {
		assert.Equal(t, int64(len(payload)), u.Expected)
		assert.LessOrEqual(t, u.Transferred-prev, int64(ChunkSize))
		assert.Greater(t, u.Transferred, prev)
		prev = u.Transferred
	}
	assert.Equal(t, info.Size(), updates[len(updates)-1].Transferred)
}

func TestFetcher_Fetch_StatusError(t *testing.T) {
	ts := httptest.NewServer(&buildServer{archives: [][]byte{nil}})
	defer ts.Close()

	dir := fs.NewDir(t, "work")
	defer dir.Remove()

	u := ts.URL + "/unagi.zip"
	_, err := newFetcher().Fetch(context.Background(), Request{
		URL:         u,
		Credentials: credentials.Credentials{Username: "bob", Password: "wrong"},
		Dest:        dir.Path(),
	})

	var serr *StatusError
	require.True(t, errors.As(err, &serr), "got %v", err)
	assert.Equal(t, http.StatusUnauthorized, serr.StatusCode)
	assert.EqualError(t, err, "got 401 from "+u+" (Is your password correct? Is the URL correct?)")
}

func TestFetcher_Fetch_NoDistro(t *testing.T) {
	ts := httptest.NewServer(&buildServer{archives: [][]byte{archive(t, map[string]string{"README": "hi"})}})
	defer ts.Close()

	dir := fs.NewDir(t, "work")
	defer dir.Remove()

	_, err := newFetcher().Fetch(context.Background(), Request{
		URL:         ts.URL + "/unagi.zip",
		Credentials: bob,
		Dest:        dir.Path(),
		Unpack:      true,
	})
	assert.ErrorIs(t, err, ErrNoDistro)
}

func TestArchiveName(t *testing.T) {
	tests := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{url: "https://pvtbuilds.mozilla.org/latest/unagi.zip", want: "unagi.zip"},
		{url: "https://example.com/", want: "build.zip"},
		{url: "https://example.com", want: "build.zip"},
		{url: "ftp://example.com/unagi.zip", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, err := archiveName(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
