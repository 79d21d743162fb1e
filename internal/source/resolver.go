// Package source turns user-supplied document locators into local files.
//
// Supported locators:
//   - absolute/relative filesystem paths and file:// URLs (used in place)
//   - http(s):// URLs (downloaded to a temp file)
//   - s3://bucket/key (downloaded to a temp file via AWS SDK v2)
//
// Downloaded files live until Release is called.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// TempPrefix names every file the resolver downloads.
const TempPrefix = "pdfasm-"

// S3Downloader is the subset of manager.Downloader the resolver needs.
type S3Downloader interface {
	Download(ctx context.Context, w io.WriterAt, input *s3.GetObjectInput, options ...func(*manager.Downloader)) (int64, error)
}

// Options configures a Resolver.
type Options struct {
	TempDir    string
	HTTPClient *http.Client
	S3         S3Downloader // nil: built from the default AWS config on first use
}

// Resolver maps locators to local paths, caching downloads per session.
type Resolver struct {
	tempDir string
	http    *http.Client
	s3      S3Downloader
	temps   map[string]string
}

func New(opts Options) *Resolver {
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	return &Resolver{tempDir: opts.TempDir, http: opts.HTTPClient, s3: opts.S3, temps: map[string]string{}}
}

// IsRemote reports whether ref needs downloading.
func IsRemote(ref string) bool {
	return strings.HasPrefix(ref, "s3://") || strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// Resolve returns a readable local path for ref.
func (r *Resolver) Resolve(ctx context.Context, ref string) (string, error) {
	if ref == "" {
		return "", errors.New("empty document location")
	}
	// Remote locators may carry a #page fragment; local paths are taken as is.
	if IsRemote(ref) {
		if _, err := url.Parse(ref); err != nil {
			return "", fmt.Errorf("invalid url %s: %w", ref, err)
		}
		ref, _, _ = strings.Cut(ref, "#")
	}

	if p, ok := r.temps[ref]; ok {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
		delete(r.temps, ref)
	}

	switch {
	case strings.HasPrefix(ref, "s3://"):
		return r.download(ref, func(f *os.File) error { return r.fetchS3(ctx, ref, f) })
	case strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://"):
		return r.download(ref, func(f *os.File) error { return r.fetchHTTP(ctx, ref, f) })
	case strings.HasPrefix(ref, "file://"):
		u, err := url.Parse(ref)
		if err != nil {
			return "", fmt.Errorf("invalid file url %s: %w", ref, err)
		}
		return checkLocal(u.Path)
	default:
		return checkLocal(ref)
	}
}

// Release removes every file downloaded so far.
func (r *Resolver) Release() {
	for ref, p := range r.temps {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("file", p).Msg("remove downloaded source")
		}
		delete(r.temps, ref)
	}
}

func checkLocal(p string) (string, error) {
	st, err := os.Stat(p)
	if err != nil {
		return "", err
	}
	if st.IsDir() {
		return "", fmt.Errorf("%s is a directory", p)
	}
	return p, nil
}

func (r *Resolver) download(ref string, fetch func(*os.File) error) (string, error) {
	f, err := os.CreateTemp(r.tempDir, TempPrefix+"*.pdf")
	if err != nil {
		return "", err
	}
	name := f.Name()
	ferr := fetch(f)
	cerr := f.Close()
	if ferr == nil {
		ferr = cerr
	}
	if ferr != nil {
		_ = os.Remove(name)
		return "", ferr
	}
	r.temps[ref] = name
	log.Info().Str("ref", ref).Str("file", filepath.Base(name)).Msg("downloaded source to temp")
	return name, nil
}

func (r *Resolver) fetchHTTP(ctx context.Context, ref string, f *os.File) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return err
	}
	resp, err := r.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("http %d fetching %s", resp.StatusCode, ref)
	}
	_, err = io.Copy(f, resp.Body)
	return err
}

// ParseS3 splits s3://bucket/key.
func ParseS3(ref string) (bucket, key string, err error) {
	path := strings.TrimPrefix(ref, "s3://")
	slash := strings.Index(path, "/")
	if slash <= 0 || slash == len(path)-1 {
		return "", "", fmt.Errorf("invalid s3 url: %s", ref)
	}
	return path[:slash], path[slash+1:], nil
}

func (r *Resolver) fetchS3(ctx context.Context, ref string, f *os.File) error {
	bucket, key, err := ParseS3(ref)
	if err != nil {
		return err
	}
	if r.s3 == nil {
		// Load AWS config (region from env or default chain)
		cfg, err := awscfg.LoadDefaultConfig(ctx)
		if err != nil {
			return fmt.Errorf("failed to load AWS config: %w", err)
		}
		r.s3 = manager.NewDownloader(s3.NewFromConfig(cfg))
	}
	n, err := r.s3.Download(ctx, f, &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		return fmt.Errorf("failed to download from S3: %w", err)
	}
	log.Debug().Str("bucket", bucket).Str("key", key).Int64("bytes", n).Msg("s3 object fetched")
	return nil
}

// CleanupStale removes downloaded sources older than maxAge left in dir by
// earlier sessions and returns how many were removed.
func CleanupStale(dir string, maxAge time.Duration) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	now := time.Now()
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), TempPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) >= maxAge {
			if os.Remove(filepath.Join(dir, e.Name())) == nil {
				removed++
			}
		}
	}
	return removed
}
