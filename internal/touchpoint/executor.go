package touchpoint

import (
	"context"
	"errors"
	"time"

	"github.com/tbourn/go-outreach-backend/internal/linkedin"
)

// Automation is the set of LinkedIn actions executors drive. It is
// implemented by *linkedin.Client.
type Automation interface {
	ScrapeProfile(ctx context.Context, ref linkedin.ProfileRef) (*linkedin.Snapshot, error)
	VisitProfile(ctx context.Context, url string, dwell time.Duration, scrolls int) error
	SendConnectionRequest(ctx context.Context, ref linkedin.ProfileRef, note string) (linkedin.ConnectionStatus, error)
	SendMessage(ctx context.Context, ref linkedin.ProfileRef, text string) (linkedin.MessageStatus, error)
	ReactToPost(ctx context.Context, postURL string, reaction linkedin.Reaction) error
	CommentOnPost(ctx context.Context, postURL, text string) error
	SendInMail(ctx context.Context, profileURL, subject, body string) error
}

// Campaign runs a connect-follow-up batch and returns a summary.
type Campaign interface {
	Run(ctx context.Context, in *ConnectFollowUp) (map[string]any, error)
}

// Deps are the capabilities executors are built with.
type Deps struct {
	Automation Automation
	Campaign   Campaign
}

// Executor performs one touchpoint. Execute never panics on action
// errors: they are folded into a failed Result.
type Executor interface {
	Execute(ctx context.Context) Result
}

var builders = map[Type]func(Input, Deps) Executor{
	TypeProfileEnrich:   func(in Input, d Deps) Executor { return &enrichExecutor{in.(*ProfileEnrich), d.Automation} },
	TypeProfileVisit:    func(in Input, d Deps) Executor { return &visitExecutor{in.(*ProfileVisit), d.Automation} },
	TypeConnect:         func(in Input, d Deps) Executor { return &connectExecutor{in.(*Connect), d.Automation} },
	TypeDirectMessage:   func(in Input, d Deps) Executor { return &messageExecutor{in.(*DirectMessage), d.Automation} },
	TypePostReact:       func(in Input, d Deps) Executor { return &reactExecutor{in.(*PostReact), d.Automation} },
	TypePostComment:     func(in Input, d Deps) Executor { return &commentExecutor{in.(*PostComment), d.Automation} },
	TypeInMail:          func(in Input, d Deps) Executor { return &inmailExecutor{in.(*InMail), d.Automation} },
	TypeConnectFollowUp: func(in Input, d Deps) Executor { return &campaignExecutor{in.(*ConnectFollowUp), d.Campaign} },
}

// NewExecutor returns the executor for a parsed input.
func NewExecutor(in Input, d Deps) (Executor, error) {
	kind := in.Base().Kind
	build, ok := builders[kind]
	if !ok {
		return nil, invalid("Invalid touchpoint type: %s", kind)
	}
	if kind == TypeConnectFollowUp {
		if d.Campaign == nil {
			return nil, errors.New("touchpoint: campaign runner not configured")
		}
	} else if d.Automation == nil {
		return nil, errors.New("touchpoint: automation not configured")
	}
	return build(in, d), nil
}

type enrichExecutor struct {
	in   *ProfileEnrich
	auto Automation
}

func (e *enrichExecutor) Execute(ctx context.Context) Result {
	snap, err := e.auto.ScrapeProfile(ctx, e.in.Ref())
	if err != nil || snap == nil {
		if err == nil {
			err = linkedin.ErrProfileUnavailable
		}
		return Failed("Failed to enrich profile: %v", err)
	}
	return Succeeded(map[string]any{
		"profile": snap.Map(),
		"data":    snap.RawMap(),
	})
}

type visitExecutor struct {
	in   *ProfileVisit
	auto Automation
}

func (e *visitExecutor) Execute(ctx context.Context) Result {
	dwell := time.Duration(e.in.DurationS * float64(time.Second))
	if err := e.auto.VisitProfile(ctx, e.in.URL, dwell, e.in.ScrollDepth); err != nil {
		return Failed("Failed to visit profile: %v", err)
	}
	return Succeeded(map[string]any{
		"url":          e.in.URL,
		"duration_s":   e.in.DurationS,
		"scroll_depth": e.in.ScrollDepth,
	})
}

type connectExecutor struct {
	in   *Connect
	auto Automation
}

func (e *connectExecutor) Execute(ctx context.Context) Result {
	ref := linkedin.ProfileRef{URL: e.in.URL, PublicIdentifier: e.in.PublicIdentifier}
	status, err := e.auto.SendConnectionRequest(ctx, ref, e.in.Note)
	switch {
	case errors.Is(err, linkedin.ErrConnectionLimit):
		return Failed("Connection limit reached")
	case errors.Is(err, linkedin.ErrSkipProfile):
		return Failed("Profile cannot be connected: %v", err)
	case err != nil:
		return Failed("Failed to send connection request: %v", err)
	}
	if status != linkedin.ConnectionPending && status != linkedin.ConnectionConnected {
		return Failed("Unexpected connection status: %s", status)
	}
	return Succeeded(map[string]any{"status": string(status)})
}

type messageExecutor struct {
	in   *DirectMessage
	auto Automation
}

func (e *messageExecutor) Execute(ctx context.Context) Result {
	ref := linkedin.ProfileRef{URL: e.in.URL, PublicIdentifier: e.in.PublicIdentifier}
	status, err := e.auto.SendMessage(ctx, ref, e.in.Message)
	if err != nil {
		return Failed("Failed to send message: %v", err)
	}
	if status != linkedin.MessageSent {
		return Failed("Message not sent: %s", status)
	}
	return Succeeded(map[string]any{"status": string(status)})
}

type reactExecutor struct {
	in   *PostReact
	auto Automation
}

func (e *reactExecutor) Execute(ctx context.Context) Result {
	if err := e.auto.ReactToPost(ctx, e.in.PostURL, e.in.Reaction); err != nil {
		return Failed("Failed to react to post: %v", err)
	}
	return Succeeded(map[string]any{"post_url": e.in.PostURL, "reaction": string(e.in.Reaction)})
}

type commentExecutor struct {
	in   *PostComment
	auto Automation
}

func (e *commentExecutor) Execute(ctx context.Context) Result {
	if err := e.auto.CommentOnPost(ctx, e.in.PostURL, e.in.CommentText); err != nil {
		return Failed("Failed to comment on post: %v", err)
	}
	return Succeeded(map[string]any{"post_url": e.in.PostURL})
}

type inmailExecutor struct {
	in   *InMail
	auto Automation
}

func (e *inmailExecutor) Execute(ctx context.Context) Result {
	if err := e.auto.SendInMail(ctx, e.in.ProfileURL, e.in.Subject, e.in.Body); err != nil {
		var ie *linkedin.InMailError
		if errors.As(err, &ie) {
			return Failed("InMail failed (%s)", ie.Reason)
		}
		return Failed("InMail failed (%s): %v", linkedin.InMailUnknown, err)
	}
	return Succeeded(map[string]any{"profile_url": e.in.ProfileURL, "status": "sent"})
}

type campaignExecutor struct {
	in  *ConnectFollowUp
	run Campaign
}

func (e *campaignExecutor) Execute(ctx context.Context) Result {
	summary, err := e.run.Run(ctx, e.in)
	if err != nil {
		return Failed("Campaign failed: %v", err)
	}
	return Succeeded(summary)
}
