package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
)

const maxConsoleEntries = 200

// ChromeLauncher starts a Chrome instance per session with chromedp.
// Each handle gets its own user-data directory so cookies survive runs.
type ChromeLauncher struct {
	Headless      bool
	ExecPath      string
	ProfileDir    string
	ActionTimeout time.Duration
	Log           zerolog.Logger
}

// Launch starts Chrome and returns its first tab.
func (l *ChromeLauncher) Launch(ctx context.Context, opts LaunchOptions) (Page, error) {
	userDir := filepath.Join(l.ProfileDir, opts.Handle)
	if err := os.MkdirAll(userDir, 0o700); err != nil {
		return nil, fmt.Errorf("browser: profile dir: %w", err)
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", l.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserDataDir(userDir),
		chromedp.WindowSize(1366, 900),
	)
	if l.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(l.ExecPath))
	}
	if opts.Proxy != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(opts.Proxy))
	}

	// The browser outlives the launching call, so it is rooted in a fresh context.
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	log := l.Log.With().Str("handle", opts.Handle).Logger()
	tabCtx, cancelTab := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) { log.Debug().Msgf(format, args...) }),
		chromedp.WithErrorf(func(format string, args ...any) { log.Warn().Msgf(format, args...) }),
	)

	p := &chromePage{
		ctx:     tabCtx,
		timeout: l.ActionTimeout,
		cancel: func() {
			cancelTab()
			cancelAlloc()
		},
	}
	if p.timeout <= 0 {
		p.timeout = 30 * time.Second
	}

	chromedp.ListenTarget(tabCtx, p.onEvent)

	startCtx, stop := p.bound(ctx)
	defer stop()
	if err := chromedp.Run(startCtx); err != nil {
		p.cancel()
		return nil, fmt.Errorf("browser: start chrome: %w", err)
	}
	return p, nil
}

type chromePage struct {
	ctx     context.Context
	timeout time.Duration
	cancel  func()

	mu      sync.Mutex
	console []ConsoleEntry
	closed  bool
}

// bound derives a per-action context from the tab that also stops when
// the caller's ctx is done.
func (p *chromePage) bound(ctx context.Context) (context.Context, func()) {
	actx, cancel := context.WithTimeout(p.ctx, p.timeout)
	stop := context.AfterFunc(ctx, cancel)
	return actx, func() {
		stop()
		cancel()
	}
}

func (p *chromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	actx, done := p.bound(ctx)
	defer done()
	return chromedp.Run(actx, actions...)
}

func (p *chromePage) onEvent(ev any) {
	e, ok := ev.(*runtime.EventConsoleAPICalled)
	if !ok {
		return
	}
	parts := make([]string, 0, len(e.Args))
	for _, a := range e.Args {
		switch {
		case a.Description != "":
			parts = append(parts, a.Description)
		case len(a.Value) > 0:
			parts = append(parts, strings.Trim(string(a.Value), `"`))
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.console = append(p.console, ConsoleEntry{
		Level: string(e.Type),
		Text:  strings.Join(parts, " "),
		Time:  time.Now().UTC(),
	})
	if len(p.console) > maxConsoleEntries {
		p.console = p.console[len(p.console)-maxConsoleEntries:]
	}
}

func (p *chromePage) Navigate(ctx context.Context, url string) error {
	return p.run(ctx, chromedp.Navigate(url))
}

func (p *chromePage) WaitVisible(ctx context.Context, sel string) error {
	return p.run(ctx, chromedp.WaitVisible(sel, chromedp.ByQuery))
}

func (p *chromePage) Exists(ctx context.Context, sel string) (bool, error) {
	var nodes []*cdp.Node
	err := p.run(ctx, chromedp.Nodes(sel, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)))
	return len(nodes) > 0, err
}

func (p *chromePage) Click(ctx context.Context, sel string) error {
	return p.run(ctx, chromedp.Click(sel, chromedp.ByQuery, chromedp.NodeVisible))
}

func (p *chromePage) Type(ctx context.Context, sel, text string) error {
	return p.run(ctx,
		chromedp.Focus(sel, chromedp.ByQuery),
		chromedp.SendKeys(sel, text, chromedp.ByQuery),
	)
}

func (p *chromePage) Text(ctx context.Context, sel string) (string, error) {
	var s string
	err := p.run(ctx, chromedp.Text(sel, &s, chromedp.ByQuery))
	return strings.TrimSpace(s), err
}

func (p *chromePage) HTML(ctx context.Context) (string, error) {
	var s string
	err := p.run(ctx, chromedp.OuterHTML("html", &s, chromedp.ByQuery))
	return s, err
}

func (p *chromePage) URL(ctx context.Context) (string, error) {
	var s string
	err := p.run(ctx, chromedp.Location(&s))
	return s, err
}

func (p *chromePage) Scroll(ctx context.Context) error {
	return p.run(ctx, chromedp.Evaluate(`window.scrollBy(0, window.innerHeight * 0.8)`, nil))
}

func (p *chromePage) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := p.run(ctx, chromedp.FullScreenshot(&buf, 90))
	return buf, err
}

func (p *chromePage) ConsoleLogs() []ConsoleEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ConsoleEntry, len(p.console))
	copy(out, p.console)
	return out
}

func (p *chromePage) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	err := chromedp.Cancel(p.ctx)
	p.cancel()
	return err
}
