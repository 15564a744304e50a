// ABOUTME: Cover art cache for the current item
// ABOUTME: Downloads covers into a sha256-addressed temp directory, optionally in the background
package artwork

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Config holds downloader configuration
type Config struct {
	CacheDir   string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Result is the outcome of a background fetch
type Result struct {
	TrackID string
	Path    string
	Err     error
}

// Downloader manages artwork downloads
type Downloader struct {
	cacheDir string
	client   *http.Client
	log      *slog.Logger

	mu          sync.Mutex
	currentPath string
	generation  uint64
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// NewDownloader creates a downloader and its cache directory
func NewDownloader(config Config) (*Downloader, error) {
	if config.CacheDir == "" {
		config.CacheDir = filepath.Join(os.TempDir(), "resonate-visualizer-artwork")
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{}
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	if err := os.MkdirAll(config.CacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return &Downloader{
		cacheDir: config.CacheDir,
		client:   config.HTTPClient,
		log:      config.Logger.With("component", "artwork"),
	}, nil
}

// CachePath returns where url is stored
func (d *Downloader) CachePath(url string) string {
	hash := sha256.Sum256([]byte(url))
	return filepath.Join(d.cacheDir, fmt.Sprintf("%x%s", hash[:8], getExtension(url)))
}

// Download fetches url into the cache and returns the file path. An empty
// url is not an error and yields an empty path.
func (d *Downloader) Download(ctx context.Context, url string) (string, error) {
	if url == "" {
		return "", nil
	}

	cachePath := d.CachePath(url)
	if _, err := os.Stat(cachePath); err == nil {
		d.log.Debug("cache hit", "path", cachePath)
		d.setCurrent(cachePath)
		return cachePath, nil
	}

	d.log.Debug("downloading", "url", url)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("invalid artwork url: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download artwork: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("artwork download failed: HTTP %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(d.cacheDir, "partial-*")
	if err != nil {
		return "", fmt.Errorf("failed to create cache file: %w", err)
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to save artwork: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to save artwork: %w", err)
	}
	if err := os.Rename(tmp.Name(), cachePath); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to save artwork: %w", err)
	}

	d.log.Debug("saved", "path", cachePath)
	d.setCurrent(cachePath)
	return cachePath, nil
}

// Fetch downloads url in the background and calls done with the result.
// A newer Fetch cancels the previous one, whose result is discarded.
func (d *Downloader) Fetch(trackID, url string, done func(Result)) {
	ctx, cancel := context.WithCancel(context.Background())

	d.mu.Lock()
	if d.cancel != nil {
		d.cancel()
	}
	d.cancel = cancel
	d.generation++
	gen := d.generation
	d.mu.Unlock()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer cancel()

		path, err := d.Download(ctx, url)
		if err != nil {
			d.log.Warn("artwork unavailable", "track_id", trackID, "error", err)
		}

		d.mu.Lock()
		current := gen == d.generation
		d.mu.Unlock()
		if current && done != nil {
			done(Result{TrackID: trackID, Path: path, Err: err})
		}
	}()
}

func (d *Downloader) setCurrent(path string) {
	d.mu.Lock()
	d.currentPath = path
	d.mu.Unlock()
}

// CurrentPath returns the path of the most recent artwork
func (d *Downloader) CurrentPath() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.currentPath
}

// Close cancels any background fetch and waits for it
func (d *Downloader) Close() {
	d.mu.Lock()
	if d.cancel != nil {
		d.cancel()
	}
	d.generation++
	d.mu.Unlock()

	d.wg.Wait()
}

func getExtension(url string) string {
	url = strings.Split(url, "?")[0]

	ext := filepath.Ext(url)
	if ext == "" || len(ext) > 5 || strings.ContainsAny(ext, "/:") {
		ext = ".jpg"
	}
	return ext
}

// Cleanup removes the cache directory
func (d *Downloader) Cleanup() error {
	return os.RemoveAll(d.cacheDir)
}
