package automation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

const (
	defaultActionTimeout = 30 * time.Second
	defaultWindowWidth   = 1366
	defaultWindowHeight  = 900
)

var (
	// ErrEngineClosed indicates the engine has been shut down
	ErrEngineClosed = errors.New("automation: engine closed")
)

// Mode selects how page interactions behave. Interactive runs type
// keystroke by keystroke and honor humanization pauses; background runs
// take the fast paths. The mode travels as an explicit argument from the
// caller down to every primitive, never through shared state.
type Mode string

const (
	// ModeInteractive mimics a human operating the page
	ModeInteractive Mode = "interactive"
	// ModeBackground optimizes for throughput on unattended workers
	ModeBackground Mode = "background"
)

// IsValid checks if the Mode is a valid value
func (m Mode) IsValid() bool {
	return m == ModeInteractive || m == ModeBackground
}

// String returns the string representation of Mode
func (m Mode) String() string {
	return string(m)
}

// Config contains configuration for the browser engine
type Config struct {
	// DefaultTimeout bounds individual page actions
	DefaultTimeout time.Duration
	// RemoteURL is the URL of a remote Chrome/Chromium instance (optional)
	// If empty, the engine launches its own browser process
	RemoteURL string
	// Headless runs the browser without a visible window. Interactive
	// debugging sessions set this to false
	Headless bool
	// DisableGPU disables GPU hardware acceleration
	DisableGPU bool
	// NoSandbox runs Chrome without sandbox (required for Docker/root)
	NoSandbox bool
	// UserAgent overrides the browser's user agent when set
	UserAgent string
	// WindowWidth and WindowHeight size the viewport
	WindowWidth  int
	WindowHeight int
	// Logger for debug output
	Logger *zap.Logger
}

// Engine owns one browser allocator and hands out isolated pages. Each job
// gets its own page with its own cookie jar; pages never outlive the release
// function returned alongside them.
type Engine struct {
	config      *Config
	logger      *zap.Logger
	allocCtx    context.Context
	allocCancel context.CancelFunc
	activePages atomic.Int64
	closed      atomic.Bool
}

// NewEngine creates a browser engine and prepares its allocator. The config
// is copied; only unset numeric fields receive defaults, boolean flags are
// taken as given so an explicit headful run stays headful.
func NewEngine(config *Config) (*Engine, error) {
	cfg := Config{}
	if config != nil {
		cfg = *config
	}
	applyDefaults(&cfg)

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	engine := &Engine{
		config: &cfg,
		logger: logger,
	}
	engine.initAllocator()

	return engine, nil
}

// applyDefaults fills zero values with engine defaults
func applyDefaults(c *Config) {
	if c.DefaultTimeout == 0 {
		c.DefaultTimeout = defaultActionTimeout
	}
	if c.WindowWidth == 0 {
		c.WindowWidth = defaultWindowWidth
	}
	if c.WindowHeight == 0 {
		c.WindowHeight = defaultWindowHeight
	}
}

// initAllocator initializes the Chrome allocator
func (e *Engine) initAllocator() {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", e.config.Headless),
		chromedp.Flag("disable-gpu", e.config.DisableGPU),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true), // Important for Docker
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.WindowSize(e.config.WindowWidth, e.config.WindowHeight),
	)

	if e.config.NoSandbox {
		opts = append(opts, chromedp.Flag("no-sandbox", true))
	}
	if e.config.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(e.config.UserAgent))
	}

	if e.config.RemoteURL != "" {
		e.allocCtx, e.allocCancel = chromedp.NewRemoteAllocator(context.Background(), e.config.RemoteURL)
	} else {
		e.allocCtx, e.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	}
}

// NewPage opens an isolated browser context. The returned release function
// is safe to call more than once and must run on every code path; deferring
// it at the claim site is what guarantees a crashed job still frees its
// browser resources.
func (e *Engine) NewPage(ctx context.Context, mode Mode) (*Page, func(), error) {
	if e.closed.Load() {
		return nil, nil, ErrEngineClosed
	}
	if !mode.IsValid() {
		return nil, nil, fmt.Errorf("automation: invalid mode %q", mode)
	}

	pageCtx, pageCancel := chromedp.NewContext(e.allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			e.logger.Debug(fmt.Sprintf(format, args...))
		}),
	)

	page := &Page{
		ctx:            pageCtx,
		mode:           mode,
		defaultTimeout: e.config.DefaultTimeout,
		logger:         e.logger,
	}

	// Materialize the browser context before handing the page out so a
	// broken browser surfaces here, not mid-job.
	if err := page.run(ctx, e.config.DefaultTimeout, chromedp.Navigate("about:blank")); err != nil {
		pageCancel()
		return nil, nil, fmt.Errorf("automation: open page: %w", err)
	}

	e.activePages.Add(1)

	var once sync.Once
	release := func() {
		once.Do(func() {
			pageCancel()
			e.activePages.Add(-1)
			e.logger.Debug("browser page released", zap.Int64("active_pages", e.activePages.Load()))
		})
	}

	return page, release, nil
}

// ActivePages returns the number of pages currently held by jobs
func (e *Engine) ActivePages() int64 {
	return e.activePages.Load()
}

// Close releases the allocator and the browser process
func (e *Engine) Close() error {
	if e.closed.Swap(true) {
		return nil
	}
	if e.allocCancel != nil {
		e.allocCancel()
	}
	return nil
}
