// Package browser defines the page-level browser capability used by the
// LinkedIn automation layer, a chromedp implementation of it, and the
// session manager that owns one browser per (handle, run) pair.
package browser

import (
	"context"
	"time"
)

// ConsoleEntry is one captured browser console message.
type ConsoleEntry struct {
	Level string    `json:"level"`
	Text  string    `json:"text"`
	Time  time.Time `json:"time"`
}

// Page is a single browser tab. Selectors are CSS query selectors.
// Implementations bound every call by their own action timeout.
type Page interface {
	Navigate(ctx context.Context, url string) error
	WaitVisible(ctx context.Context, sel string) error
	Exists(ctx context.Context, sel string) (bool, error)
	Click(ctx context.Context, sel string) error
	Type(ctx context.Context, sel, text string) error
	Text(ctx context.Context, sel string) (string, error)
	HTML(ctx context.Context) (string, error)
	URL(ctx context.Context) (string, error)
	Scroll(ctx context.Context) error
	Screenshot(ctx context.Context) ([]byte, error)
	ConsoleLogs() []ConsoleEntry
	Close() error
}

// LaunchOptions configure a browser for one account.
type LaunchOptions struct {
	Handle string
	Proxy  string
}

// Launcher starts browsers.
type Launcher interface {
	Launch(ctx context.Context, opts LaunchOptions) (Page, error)
}
