package imageio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dshills/pixstorm/internal/cache"
)

// Default loader settings.
const (
	DefaultCacheSize = 50
	DefaultTimeout   = 10 * time.Second
)

// Logger receives load failures from LoadAsync.
type Logger interface {
	Warn(msg string, args ...any)
}

// LoaderOptions configures a Loader.
type LoaderOptions struct {
	CacheSize int
	Timeout   time.Duration
	Client    *http.Client
	Logger    Logger
}

// Loader reads images from disk or http(s) URLs and keeps recently
// decoded images in a bounded cache.
type Loader struct {
	cache   *cache.LRU[string, *Image]
	timeout time.Duration
	client  *http.Client
	log     Logger
	wg      sync.WaitGroup
}

// NewLoader creates a loader.
func NewLoader(opts LoaderOptions) *Loader {
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	return &Loader{
		cache:   cache.New[string, *Image]("images", opts.CacheSize),
		timeout: opts.Timeout,
		client:  opts.Client,
		log:     opts.Logger,
	}
}

// CacheStats returns image cache statistics.
func (l *Loader) CacheStats() cache.Stats {
	return l.cache.Stats()
}

// Load returns the decoded image for src, a file path or an http(s) URL.
func (l *Loader) Load(ctx context.Context, src string) (*Image, error) {
	if img, ok := l.cache.Get(src); ok {
		return img, nil
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	data, err := l.read(ctx, src)
	if err != nil {
		return nil, err
	}
	img, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", src, err)
	}
	l.cache.Add(src, img)
	return img, nil
}

// LoadAsync loads src in the background and stores the outcome in slot.
// The caller keeps rendering whatever slot held before and picks up the
// new image on a later frame.
func (l *Loader) LoadAsync(ctx context.Context, src string, slot *Slot) {
	gen := slot.begin(src)
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		img, err := l.Load(ctx, src)
		if err != nil && l.log != nil {
			l.log.Warn("image load failed: %s: %v", src, err)
		}
		slot.finish(gen, img, err)
	}()
}

// Wait blocks until every LoadAsync call has finished.
func (l *Loader) Wait() {
	l.wg.Wait()
}

func (l *Loader) read(ctx context.Context, src string) ([]byte, error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return l.fetch(ctx, src)
	}
	f, err := os.Open(src)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readLimited(f)
}

func (l *Loader) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: %s", url, resp.Status)
	}
	return readLimited(resp.Body)
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxFileSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxFileSize {
		return nil, ErrTooLarge
	}
	return data, nil
}

// Slot holds the most recent completed load for one image source. It is
// safe for concurrent use.
type Slot struct {
	mu      sync.Mutex
	src     string
	gen     uint64
	img     *Image
	err     error
	version uint64
	pending bool
}

// begin starts a load and returns its generation. Results of older
// generations are discarded.
func (s *Slot) begin(src string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.src = src
	s.pending = true
	return s.gen
}

func (s *Slot) finish(gen uint64, img *Image, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return
	}
	s.pending = false
	s.err = err
	if err == nil {
		s.img = img
		s.version++
	}
}

// Image returns the last successfully loaded image and a version that
// increases with every successful load. A failed load keeps the previous
// image.
func (s *Slot) Image() (*Image, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.img, s.version
}

// Err returns the error of the last completed load.
func (s *Slot) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Pending reports whether a load is in flight.
func (s *Slot) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}
