package transport

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
	"strings"

	"cloud.google.com/go/storage"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2/clientcredentials"
)

const gcsPublicHost = "storage.googleapis.com"

var ErrUnreachable = errors.New("scene archive unreachable")

// Fetcher makes a scene archive available on the local filesystem.
type Fetcher interface {
	Fetch(ctx context.Context, locator, dir string) (string, error)
}

// FetchOptions configure remote access. A nil GCS client disables gs://
// locators; empty OAuth2 fields make plain HTTP requests.
type FetchOptions struct {
	GCS          *storage.Client
	ClientID     string
	ClientSecret string
	TokenURL     string
}

type fetcher struct {
	opts FetchOptions
}

func NewFetcher(opts FetchOptions) Fetcher {
	return &fetcher{opts: opts}
}

// Fetch returns a local path for locator. Local paths and file:// URLs are
// returned as is, remote archives are downloaded into dir.
func (f *fetcher) Fetch(ctx context.Context, locator, dir string) (string, error) {
	u, err := url.Parse(locator)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// Bare paths, including Windows drive letters.
		return statLocal(locator)
	}

	switch u.Scheme {
	case "file":
		return statLocal(u.Path)
	case "gs":
		return f.fetchGCS(ctx, u.Host, strings.TrimPrefix(u.Path, "/"), dir)
	case "http", "https":
		if u.Host == gcsPublicHost && f.opts.GCS != nil {
			bucket, object, ok := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
			if ok {
				return f.fetchGCS(ctx, bucket, object, dir)
			}
		}
		return f.fetchHTTP(ctx, locator, dir)
	default:
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrUnreachable, u.Scheme)
	}
}

func statLocal(p string) (string, error) {
	if _, err := os.Stat(p); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	return p, nil
}

func (f *fetcher) fetchGCS(ctx context.Context, bucket, object, dir string) (string, error) {
	if f.opts.GCS == nil {
		return "", fmt.Errorf("%w: no GCS client configured for gs://%s/%s", ErrUnreachable, bucket, object)
	}
	r, err := f.opts.GCS.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: gs://%s/%s: %v", ErrUnreachable, bucket, object, err)
	}
	defer r.Close()

	dst := filepath.Join(dir, path.Base(object))
	if err := writeFile(dst, r); err != nil {
		return "", err
	}
	logrus.Infof("Downloaded: gs://%s/%s → %s", bucket, object, dst)
	return dst, nil
}

func (f *fetcher) httpClient(ctx context.Context) *http.Client {
	if f.opts.ClientID == "" || f.opts.ClientSecret == "" || f.opts.TokenURL == "" {
		return http.DefaultClient
	}
	config := &clientcredentials.Config{
		ClientID:     f.opts.ClientID,
		ClientSecret: f.opts.ClientSecret,
		TokenURL:     f.opts.TokenURL,
	}
	return config.Client(ctx)
}

func (f *fetcher) fetchHTTP(ctx context.Context, locator, dir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	resp, err := f.httpClient(ctx).Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %s returned %s", ErrUnreachable, locator, resp.Status)
	}

	name := path.Base(req.URL.Path)
	if name == "/" || name == "." {
		name = "scene.zip"
	}
	dst := filepath.Join(dir, name)
	if err := writeFile(dst, resp.Body); err != nil {
		return "", err
	}
	logrus.Infof("Downloaded: %s → %s", locator, dst)
	return dst, nil
}

func writeFile(dst string, r io.Reader) (err error) {
	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("write %s: %w", dst, err)
	}
	return nil
}

// JobID derives a job identifier from the base name of a locator, without
// its extension.
func JobID(locator string) string {
	base := locator
	if u, err := url.Parse(locator); err == nil && u.Path != "" {
		base = u.Path
	}
	base = path.Base(filepath.ToSlash(base))
	if i := strings.Index(base, "."); i > 0 {
		base = base[:i]
	}
	return base
}
