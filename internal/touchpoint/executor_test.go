package touchpoint

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tbourn/go-outreach-backend/internal/linkedin"
)

type fakeAutomation struct {
	snap      *linkedin.Snapshot
	status    linkedin.ConnectionStatus
	msgStatus linkedin.MessageStatus
	err       error

	gotRef     linkedin.ProfileRef
	gotNote    string
	gotDwell   time.Duration
	gotScrolls int
}

func (f *fakeAutomation) ScrapeProfile(_ context.Context, ref linkedin.ProfileRef) (*linkedin.Snapshot, error) {
	f.gotRef = ref
	return f.snap, f.err
}

func (f *fakeAutomation) VisitProfile(_ context.Context, _ string, dwell time.Duration, scrolls int) error {
	f.gotDwell, f.gotScrolls = dwell, scrolls
	return f.err
}

func (f *fakeAutomation) SendConnectionRequest(_ context.Context, ref linkedin.ProfileRef, note string) (linkedin.ConnectionStatus, error) {
	f.gotRef, f.gotNote = ref, note
	return f.status, f.err
}

func (f *fakeAutomation) SendMessage(_ context.Context, ref linkedin.ProfileRef, _ string) (linkedin.MessageStatus, error) {
	f.gotRef = ref
	return f.msgStatus, f.err
}

func (f *fakeAutomation) ReactToPost(context.Context, string, linkedin.Reaction) error { return f.err }

func (f *fakeAutomation) CommentOnPost(context.Context, string, string) error { return f.err }

func (f *fakeAutomation) SendInMail(context.Context, string, string, string) error { return f.err }

type fakeCampaign struct {
	summary map[string]any
	err     error
}

func (f fakeCampaign) Run(context.Context, *ConnectFollowUp) (map[string]any, error) {
	return f.summary, f.err
}

func mustParse(t *testing.T, m map[string]any) Input {
	t.Helper()
	in, err := Parse(m)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return in
}

func execute(t *testing.T, in Input, d Deps) Result {
	t.Helper()
	ex, err := NewExecutor(in, d)
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}
	return ex.Execute(context.Background())
}

func TestNewExecutor_MissingDeps(t *testing.T) {
	in := mustParse(t, raw("profile_visit", map[string]any{"url": "https://www.linkedin.com/in/bob/"}))
	if _, err := NewExecutor(in, Deps{}); err == nil {
		t.Fatalf("expected error without automation")
	}
	in = mustParse(t, raw("connect_follow_up", map[string]any{
		"profiles": []any{map[string]any{"url": "https://www.linkedin.com/in/bob/"}},
	}))
	if _, err := NewExecutor(in, Deps{Automation: &fakeAutomation{}}); err == nil {
		t.Fatalf("expected error without campaign runner")
	}
}

func TestEnrichExecutor(t *testing.T) {
	in := mustParse(t, raw("profile_enrich", map[string]any{"url": "https://www.linkedin.com/in/bob/"}))
	auto := &fakeAutomation{snap: &linkedin.Snapshot{
		PublicIdentifier: "bob",
		FullName:         "Bob Stone",
		Raw:              map[string]any{"source_url": "https://www.linkedin.com/in/bob/"},
	}}
	res := execute(t, in, Deps{Automation: auto})
	if !res.Success || res.Error != "" {
		t.Fatalf("expected success, got %+v", res)
	}
	profile, _ := res.Result["profile"].(map[string]any)
	if profile["full_name"] != "Bob Stone" {
		t.Fatalf("profile payload: %v", res.Result)
	}
	if data, _ := res.Result["data"].(map[string]any); data["source_url"] == nil {
		t.Fatalf("raw payload missing: %v", res.Result)
	}

	res = execute(t, in, Deps{Automation: &fakeAutomation{err: linkedin.ErrProfileUnavailable}})
	if res.Success || !strings.HasPrefix(res.Error, "Failed to enrich profile: ") || res.Result != nil {
		t.Fatalf("expected failure, got %+v", res)
	}
	res = execute(t, in, Deps{Automation: &fakeAutomation{}})
	if res.Success {
		t.Fatalf("nil snapshot must fail")
	}
}

func TestVisitExecutor_UsesDefaults(t *testing.T) {
	in := mustParse(t, raw("profile_visit", map[string]any{"url": "https://www.linkedin.com/in/bob/"}))
	auto := &fakeAutomation{}
	res := execute(t, in, Deps{Automation: auto})
	if !res.Success || auto.gotDwell != 5*time.Second || auto.gotScrolls != 3 {
		t.Fatalf("res=%+v dwell=%v scrolls=%d", res, auto.gotDwell, auto.gotScrolls)
	}
	if res.Result["scroll_depth"] != 3 {
		t.Fatalf("result: %v", res.Result)
	}
}

func TestConnectExecutor(t *testing.T) {
	in := mustParse(t, raw("connect", map[string]any{"url": "https://www.linkedin.com/in/bob/", "note": "Hi"}))

	auto := &fakeAutomation{status: linkedin.ConnectionPending}
	res := execute(t, in, Deps{Automation: auto})
	if !res.Success || res.Result["status"] != "pending" || auto.gotNote != "Hi" {
		t.Fatalf("res=%+v note=%q", res, auto.gotNote)
	}

	res = execute(t, in, Deps{Automation: &fakeAutomation{err: linkedin.ErrConnectionLimit}})
	if res.Success || res.Error != "Connection limit reached" {
		t.Fatalf("limit: %+v", res)
	}
	res = execute(t, in, Deps{Automation: &fakeAutomation{err: errors.New("boom")}})
	if res.Success || !strings.Contains(res.Error, "boom") {
		t.Fatalf("generic: %+v", res)
	}
	res = execute(t, in, Deps{Automation: &fakeAutomation{status: linkedin.ConnectionNone}})
	if res.Success {
		t.Fatalf("status none must not succeed")
	}
}

func TestMessageExecutor_SkippedIsFailure(t *testing.T) {
	in := mustParse(t, raw("direct_message", map[string]any{"url": "https://www.linkedin.com/in/bob/", "message": "hello"}))
	res := execute(t, in, Deps{Automation: &fakeAutomation{msgStatus: linkedin.MessageSkipped}})
	if res.Success {
		t.Fatalf("skipped message reported as success: %+v", res)
	}
	res = execute(t, in, Deps{Automation: &fakeAutomation{msgStatus: linkedin.MessageSent}})
	if !res.Success || res.Result["status"] != "sent" {
		t.Fatalf("sent: %+v", res)
	}
}

func TestInMailExecutor_ReportsReason(t *testing.T) {
	in := mustParse(t, raw("inmail", map[string]any{"profile_url": "https://www.linkedin.com/in/bob/", "body": "hello"}))
	res := execute(t, in, Deps{Automation: &fakeAutomation{err: &linkedin.InMailError{Reason: linkedin.InMailNoCredits}}})
	if res.Success || res.Error != "InMail failed (NO_CREDITS)" {
		t.Fatalf("got %+v", res)
	}
	res = execute(t, in, Deps{Automation: &fakeAutomation{err: errors.New("tab crashed")}})
	if res.Error != "InMail failed (UNKNOWN): tab crashed" {
		t.Fatalf("got %+v", res)
	}
}

func TestPostExecutors(t *testing.T) {
	post := "https://www.linkedin.com/feed/update/urn:li:activity:1/"
	react := mustParse(t, raw("post_react", map[string]any{"post_url": post, "reaction": "LIKE"}))
	if res := execute(t, react, Deps{Automation: &fakeAutomation{}}); !res.Success || res.Result["reaction"] != "LIKE" {
		t.Fatalf("react: %+v", res)
	}
	comment := mustParse(t, raw("post_comment", map[string]any{"post_url": post, "comment_text": "Nice"}))
	if res := execute(t, comment, Deps{Automation: &fakeAutomation{err: errors.New("not visible")}}); res.Success {
		t.Fatalf("comment failure reported as success")
	}
}

func TestCampaignExecutor(t *testing.T) {
	in := mustParse(t, raw("connect_follow_up", map[string]any{
		"profiles": []any{map[string]any{"url": "https://www.linkedin.com/in/bob/"}},
	}))
	res := execute(t, in, Deps{Campaign: fakeCampaign{summary: map[string]any{"processed": 1}}})
	if !res.Success || res.Result["processed"] != 1 {
		t.Fatalf("got %+v", res)
	}
	res = execute(t, in, Deps{Campaign: fakeCampaign{}})
	if !res.Success || res.Result == nil {
		t.Fatalf("nil summary should become an empty result: %+v", res)
	}
	res = execute(t, in, Deps{Campaign: fakeCampaign{err: errors.New("db down")}})
	if res.Success || res.Error != "Campaign failed: db down" {
		t.Fatalf("got %+v", res)
	}
}
