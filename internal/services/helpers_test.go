package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-outreach-backend/internal/browser"
	"github.com/tbourn/go-outreach-backend/internal/domain"
	"github.com/tbourn/go-outreach-backend/internal/linkedin"
	"github.com/tbourn/go-outreach-backend/internal/observability"
	"github.com/tbourn/go-outreach-backend/internal/repo"
	"github.com/tbourn/go-outreach-backend/internal/touchpoint"
)

// ----- Database -----

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "outreach.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Logger = logger.Default.LogMode(logger.Silent)
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// one connection keeps background runs and assertions from contending
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedAccount(t *testing.T, db *gorm.DB, handle string) *domain.Account {
	t.Helper()
	a := &domain.Account{
		Handle:           handle,
		Username:         handle + "@example.com",
		Password:         "pw",
		Active:           true,
		DailyConnections: domain.DefaultDailyConnections,
		DailyMessages:    domain.DefaultDailyMessages,
	}
	if err := repo.UpsertAccount(context.Background(), db, a); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return a
}

func loadRun(t *testing.T, db *gorm.DB, id string) *domain.Run {
	t.Helper()
	r, err := repo.GetRun(context.Background(), db, id)
	if err != nil {
		t.Fatalf("get run %s: %v", id, err)
	}
	return r
}

// ----- Fake quota -----

type fakeQuota struct {
	mu sync.Mutex

	deny     string // non-empty denies with this reason
	checkErr error
	denyFor  map[touchpoint.Type]string

	checks     []touchpoint.Type
	increments []touchpoint.Type
	failures   int
	successes  int
}

func (q *fakeQuota) Check(ctx context.Context, handle string, t touchpoint.Type) (bool, string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.checks = append(q.checks, t)
	if q.checkErr != nil {
		return false, "", q.checkErr
	}
	if r, ok := q.denyFor[t]; ok {
		return false, r, nil
	}
	if q.deny != "" {
		return false, q.deny, nil
	}
	return true, "", nil
}

func (q *fakeQuota) Increment(ctx context.Context, handle string, t touchpoint.Type) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.increments = append(q.increments, t)
	return nil
}

func (q *fakeQuota) RecordFailure(ctx context.Context, handle string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.failures++
	return nil
}

func (q *fakeQuota) RecordSuccess(ctx context.Context, handle string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.successes++
	return nil
}

func (q *fakeQuota) counts() (checks, increments, failures, successes int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.checks), len(q.increments), q.failures, q.successes
}

// ----- Stub browser -----

type stubPage struct {
	mu     sync.Mutex
	closed bool
}

func (p *stubPage) Navigate(ctx context.Context, url string) error { return nil }
func (p *stubPage) WaitVisible(ctx context.Context, sel string) error { return nil }
func (p *stubPage) Exists(ctx context.Context, sel string) (bool, error) { return false, nil }
func (p *stubPage) Click(ctx context.Context, sel string) error { return nil }
func (p *stubPage) Type(ctx context.Context, sel, text string) error { return nil }
func (p *stubPage) Text(ctx context.Context, sel string) (string, error) { return "", nil }
func (p *stubPage) HTML(ctx context.Context) (string, error) { return "<html></html>", nil }
func (p *stubPage) URL(ctx context.Context) (string, error) { return "about:blank", nil }
func (p *stubPage) Scroll(ctx context.Context) error { return nil }
func (p *stubPage) Screenshot(ctx context.Context) ([]byte, error) { return []byte("png"), nil }
func (p *stubPage) ConsoleLogs() []browser.ConsoleEntry {
	return []browser.ConsoleEntry{{Level: "error", Text: "Uncaught TypeError", Time: time.Unix(0, 0).UTC()}}
}

func (p *stubPage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

type stubLauncher struct {
	mu       sync.Mutex
	err      error
	launches int
	pages    []*stubPage
	opts     []browser.LaunchOptions
}

func (l *stubLauncher) Launch(ctx context.Context, opts browser.LaunchOptions) (browser.Page, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.launches++
	l.opts = append(l.opts, opts)
	if l.err != nil {
		return nil, l.err
	}
	p := &stubPage{}
	l.pages = append(l.pages, p)
	return p, nil
}

func (l *stubLauncher) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.launches
}

// ----- Fake automation -----

type fakeAuto struct {
	mu sync.Mutex

	loginErr  error
	scrapeErr error
	panicMsg  string
	delay     time.Duration

	connectStatus linkedin.ConnectionStatus
	connectErr    error
	status        map[string]linkedin.ConnectionStatus

	scraped  []string
	invites  []string
	messages []string
}

var _ Automator = (*fakeAuto)(nil)

func (f *fakeAuto) EnsureLoggedIn(ctx context.Context) error { return f.loginErr }

func (f *fakeAuto) ScrapeProfile(ctx context.Context, ref linkedin.ProfileRef) (*linkedin.Snapshot, error) {
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id := ref.PublicIdentifier
	if id == "" {
		id = linkedin.PublicIDFromURL(ref.URL)
	}
	f.scraped = append(f.scraped, id)
	if f.scrapeErr != nil {
		return nil, f.scrapeErr
	}
	return &linkedin.Snapshot{PublicIdentifier: id, URL: ref.ResolvedURL(), FullName: "Jane Doe"}, nil
}

func (f *fakeAuto) VisitProfile(ctx context.Context, url string, dwell time.Duration, scrolls int) error {
	return nil
}

func (f *fakeAuto) SendConnectionRequest(ctx context.Context, ref linkedin.ProfileRef, note string) (linkedin.ConnectionStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invites = append(f.invites, ref.ResolvedURL())
	if f.connectErr != nil {
		return linkedin.ConnectionNone, f.connectErr
	}
	if f.connectStatus == "" {
		return linkedin.ConnectionPending, nil
	}
	return f.connectStatus, nil
}

func (f *fakeAuto) SendMessage(ctx context.Context, ref linkedin.ProfileRef, text string) (linkedin.MessageStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, text)
	return linkedin.MessageSent, nil
}

func (f *fakeAuto) ReactToPost(ctx context.Context, postURL string, reaction linkedin.Reaction) error {
	return nil
}

func (f *fakeAuto) CommentOnPost(ctx context.Context, postURL, text string) error { return nil }

func (f *fakeAuto) SendInMail(ctx context.Context, profileURL, subject, body string) error {
	return errors.New("inmail not configured in fake")
}

func (f *fakeAuto) ConnectionStatus(ctx context.Context, ref linkedin.ProfileRef) (linkedin.ConnectionStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.status[ref.ResolvedURL()]; ok {
		return s, nil
	}
	return linkedin.ConnectionPending, nil
}

// ----- Run service fixture -----

type runFixture struct {
	svc      *RunService
	db       *gorm.DB
	quota    *fakeQuota
	launcher *stubLauncher
	auto     *fakeAuto
	assets   string
}

func newRunFixture(t *testing.T) *runFixture {
	t.Helper()
	db := newTestDB(t)
	f := &runFixture{
		db:       db,
		quota:    &fakeQuota{},
		launcher: &stubLauncher{},
		auto:     &fakeAuto{},
		assets:   t.TempDir(),
	}
	f.svc = &RunService{
		DB:        db,
		Quota:     f.quota,
		Sessions:  browser.NewSessionManager(f.launcher, zerolog.Nop()),
		Profiles:  repo.NewProfileDBs(t.TempDir()),
		Artifacts: &observability.Artifacts{AssetsDir: f.assets, Log: zerolog.Nop()},
		Log:       zerolog.Nop(),
		NewAutomation: func(page browser.Page, acct *domain.Account, log zerolog.Logger) Automator {
			return f.auto
		},
		Now: func() time.Time { return time.Now().UTC() },
	}
	t.Cleanup(f.svc.Profiles.Close)
	return f
}

// run creates a run for handle, executes it and waits for the outcome.
func (f *runFixture) run(t *testing.T, handle string, input map[string]any) *domain.Run {
	t.Helper()
	ctx := context.Background()
	r, err := f.svc.Create(ctx, handle, input, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := f.svc.Execute(ctx, r.RunID); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	f.svc.Wait()
	return loadRun(t, f.db, r.RunID)
}
