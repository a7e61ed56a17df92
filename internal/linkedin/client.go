package linkedin

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-outreach-backend/internal/browser"
)

// Credentials log an account in.
type Credentials struct {
	Username string
	Password string
}

// Pacer inserts human-like pauses between actions.
type Pacer struct {
	Min time.Duration
	Max time.Duration
}

// Wait sleeps for a random duration in [Min, Max] or until ctx is done.
func (p Pacer) Wait(ctx context.Context) error {
	d := p.Min
	if p.Max > p.Min {
		d += time.Duration(rand.Int63n(int64(p.Max - p.Min)))
	}
	return sleep(ctx, d)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

const loginChecks = 20

// Client performs LinkedIn actions on one page. It is not safe for
// concurrent use; the run pipeline gives each run its own page.
type Client struct {
	page  browser.Page
	creds Credentials
	pace  Pacer
	log   zerolog.Logger

	// LoginPoll is the wait between checks for a completed login.
	LoginPoll time.Duration
	// Now is the clock used for scrape timestamps.
	Now func() time.Time

	loggedIn bool
}

// NewClient returns a Client driving page.
func NewClient(page browser.Page, creds Credentials, pace Pacer, log zerolog.Logger) *Client {
	return &Client{
		page:      page,
		creds:     creds,
		pace:      pace,
		log:       log,
		LoginPoll: time.Second,
		Now:       func() time.Time { return time.Now().UTC() },
	}
}

// EnsureLoggedIn reuses a cookie session when the feed loads, otherwise
// submits the login form and waits for the feed.
func (c *Client) EnsureLoggedIn(ctx context.Context) error {
	if c.loggedIn {
		return nil
	}
	if err := c.page.Navigate(ctx, feedURL); err != nil {
		return fmt.Errorf("open feed: %w", err)
	}
	if u, err := c.page.URL(ctx); err == nil && strings.Contains(u, "/feed") {
		c.loggedIn = true
		return nil
	}
	if c.creds.Username == "" || c.creds.Password == "" {
		return fmt.Errorf("%w: missing credentials", ErrNotLoggedIn)
	}

	c.log.Info().Msg("logging in")
	if err := c.page.Navigate(ctx, loginURL); err != nil {
		return fmt.Errorf("open login: %w", err)
	}
	if err := c.page.WaitVisible(ctx, selUsername); err != nil {
		return fmt.Errorf("login form: %w", err)
	}
	if err := c.page.Type(ctx, selUsername, c.creds.Username); err != nil {
		return err
	}
	if err := c.page.Type(ctx, selPassword, c.creds.Password); err != nil {
		return err
	}
	if err := c.page.Click(ctx, selLoginSubmit); err != nil {
		return err
	}

	for i := 0; i < loginChecks; i++ {
		u, err := c.page.URL(ctx)
		if err != nil {
			return err
		}
		if strings.Contains(u, "/feed") {
			c.loggedIn = true
			return nil
		}
		if strings.Contains(u, "/checkpoint") {
			return fmt.Errorf("%w: security checkpoint", ErrNotLoggedIn)
		}
		if err := sleep(ctx, c.LoginPoll); err != nil {
			return err
		}
	}
	return ErrNotLoggedIn
}

// openProfile navigates to a profile and returns the rendered HTML.
func (c *Client) openProfile(ctx context.Context, ref ProfileRef) (string, error) {
	target := ref.ResolvedURL()
	if target == "" {
		return "", fmt.Errorf("%w: no profile url", ErrSkipProfile)
	}
	if err := c.EnsureLoggedIn(ctx); err != nil {
		return "", err
	}
	if err := c.page.Navigate(ctx, target); err != nil {
		return "", fmt.Errorf("open profile: %w", err)
	}
	if err := c.page.WaitVisible(ctx, selMain); err != nil {
		return "", fmt.Errorf("%w: %v", ErrProfileUnavailable, err)
	}
	if err := c.pace.Wait(ctx); err != nil {
		return "", err
	}
	return c.page.HTML(ctx)
}

func (c *Client) exists(ctx context.Context, sel string) bool {
	ok, err := c.page.Exists(ctx, sel)
	if err != nil {
		c.log.Debug().Err(err).Str("selector", sel).Msg("selector lookup failed")
		return false
	}
	return ok
}
