// Package build downloads, unpacks and flashes device builds.
package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"

	"github.com/kumar303/ezboot/internal/archive/zip"
	"github.com/kumar303/ezboot/internal/credentials"
	ehttp "github.com/kumar303/ezboot/internal/http"
	"github.com/kumar303/ezboot/internal/ioctx"
)

const (
	// ChunkSize is the amount of data read from the server per progress update.
	ChunkSize = 13 * 1024
	// ProgressWidth is the width of the progress bar in columns.
	ProgressWidth = 65
	// LastBuildDir is the directory under the work dir that holds the most recent build.
	LastBuildDir = "last-build"
	// DistroDir is the directory inside a build archive that holds flash.sh.
	DistroDir = "b2g-distro"
)

// ErrNoDistro is returned when an unpacked archive has no b2g-distro directory.
var ErrNoDistro = errors.New("build archive does not contain " + DistroDir)

// StatusError is returned when the build server does not answer with 200 OK.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("got %d from %s (Is your password correct? Is the URL correct?)", e.StatusCode, e.URL)
}

// Progress tracks a download.
type Progress struct {
	// Expected is the announced size in bytes or -1 when unknown.
	Expected    int64
	Transferred int64
}

// Request describes a single download.
type Request struct {
	URL         string
	Credentials credentials.Credentials
	// Dest is the directory the archive is saved into.
	Dest string
	// Unpack extracts the archive next to it and makes Fetch return the b2g-distro path.
	Unpack bool
	// Fresh removes Dest before downloading.
	Fresh bool
}

// Fetcher downloads builds.
type Fetcher struct {
	HTTPClient *retryablehttp.Client
	// Out receives the progress bar.
	Out io.Writer
	// OnProgress, if set, is called after every chunk.
	OnProgress func(Progress)
}

// NewFetcher returns a Fetcher whose requests time out after timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{
		HTTPClient: ehttp.NewRetryableClient(timeout),
		Out:        os.Stdout,
	}
}

// Fetch downloads req.URL into req.Dest. It returns the path of the saved archive, or of the b2g-distro
// directory when req.Unpack is set.
func (f *Fetcher) Fetch(ctx context.Context, req Request) (string, error) {
	name, err := archiveName(req.URL)
	if err != nil {
		return "", err
	}

	if req.Fresh {
		if err := os.RemoveAll(req.Dest); err != nil {
			return "", fmt.Errorf("failed to clear %s: %w", req.Dest, err)
		}
	}
	if err := os.MkdirAll(req.Dest, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", req.Dest, err)
	}

	log.Info().Str("url", req.URL).Msg("Downloading build")

	hreq, err := ehttp.NewRetryableRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return "", err
	}
	if !req.Credentials.IsEmpty() {
		hreq.SetBasicAuth(req.Credentials.Username, req.Credentials.Password)
	}

	resp, err := f.HTTPClient.Do(hreq)
	if err != nil {
		return "", fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{StatusCode: resp.StatusCode, URL: req.URL}
	}

	target := filepath.Join(req.Dest, name)
	if err := f.save(ctx, target, resp); err != nil {
		return "", err
	}

	if !req.Unpack {
		return target, nil
	}
	return unpack(target, req.Dest)
}

func (f *Fetcher) save(ctx context.Context, target string, resp *http.Response) error {
	file, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	log.Info().Str("file", target).Msg("Saving build")

	progress := Progress{Expected: resp.ContentLength}
	bar := f.newBar(resp.ContentLength)
	body := ioctx.ContextualReadCloser{Ctx: ctx, Reader: resp.Body}

	_, err = ioctx.CopyChunks(ctx, file, body, ChunkSize, func(n int) {
		progress.Transferred += int64(n)
		_ = bar.Add(n)
		if f.OnProgress != nil {
			f.OnProgress(progress)
		}
	})
	_ = bar.Close()
	if err != nil {
		return fmt.Errorf("failed to write to file: %w", err)
	}

	return file.Close()
}

func (f *Fetcher) newBar(size int64) *progressbar.ProgressBar {
	out := f.Out
	if out == nil {
		out = io.Discard
	}

	return progressbar.NewOptions64(size,
		progressbar.OptionSetDescription("Downloading"),
		progressbar.OptionSetWriter(out),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(ProgressWidth),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() {
			_, _ = fmt.Fprint(out, "\n")
		}),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func unpack(archive, dest string) (string, error) {
	n, err := zip.Extract(archive, dest)
	if err != nil {
		return "", fmt.Errorf("failed to unpack %s: %w", archive, err)
	}
	log.Debug().Int("files", n).Str("archive", archive).Msg("Unpacked build")

	distro := filepath.Join(dest, DistroDir)
	if fi, err := os.Stat(distro); err != nil || !fi.IsDir() {
		return "", fmt.Errorf("%s: %w", archive, ErrNoDistro)
	}
	return distro, nil
}

// archiveName returns the file name a download of rawURL is saved under.
func archiveName(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid build URL %q: %w", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid build URL %q: unsupported scheme", rawURL)
	}

	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		name = "build.zip"
	}
	return name, nil
}
