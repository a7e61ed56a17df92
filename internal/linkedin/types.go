// Package linkedin implements LinkedIn actions (profile scraping, connection
// requests, messaging, InMail, post reactions and comments) on top of the
// browser.Page capability.
package linkedin

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Control-flow signals raised by actions. They are not failures of the
// account: callers decide how to continue.
var (
	// ErrSkipProfile means the current profile cannot be processed
	// (e.g. an email is required to connect) and should be left alone.
	ErrSkipProfile = errors.New("skip profile")

	// ErrConnectionLimit means the account hit LinkedIn's invitation limit.
	ErrConnectionLimit = errors.New("connection limit reached")

	// ErrProfileUnavailable means the page did not render a usable profile.
	ErrProfileUnavailable = errors.New("profile unavailable")

	// ErrNotLoggedIn means the login flow did not reach the feed.
	ErrNotLoggedIn = errors.New("login did not complete")
)

// ConnectionStatus is the relationship between the account and a profile.
type ConnectionStatus string

const (
	ConnectionNone      ConnectionStatus = "none"
	ConnectionPending   ConnectionStatus = "pending"
	ConnectionConnected ConnectionStatus = "connected"
)

// MessageStatus is the outcome of a follow-up message attempt.
type MessageStatus string

const (
	MessageSent    MessageStatus = "sent"
	MessageSkipped MessageStatus = "skipped"
)

// Reaction is a post reaction LinkedIn offers.
type Reaction string

const (
	ReactionLike       Reaction = "LIKE"
	ReactionCelebrate  Reaction = "CELEBRATE"
	ReactionSupport    Reaction = "SUPPORT"
	ReactionLove       Reaction = "LOVE"
	ReactionInsightful Reaction = "INSIGHTFUL"
	ReactionCurious    Reaction = "CURIOUS"
)

// Reactions lists the supported reactions.
var Reactions = []Reaction{
	ReactionLike, ReactionCelebrate, ReactionSupport,
	ReactionLove, ReactionInsightful, ReactionCurious,
}

// label is the name LinkedIn shows in the reactions menu.
func (r Reaction) label() string {
	switch r {
	case ReactionCelebrate:
		return "Celebrate"
	case ReactionSupport:
		return "Support"
	case ReactionLove:
		return "Love"
	case ReactionInsightful:
		return "Insightful"
	case ReactionCurious:
		return "Funny"
	default:
		return "Like"
	}
}

// InMail failure reasons.
const (
	InMailNotAvailable = "NOT_AVAILABLE"
	InMailNoCredits    = "NO_CREDITS"
	InMailUIChanged    = "UI_CHANGED"
	InMailBlocked      = "BLOCKED"
	InMailUnknown      = "UNKNOWN"
)

// InMailError reports why an InMail could not be sent.
type InMailError struct {
	Reason string
	Detail string
}

func (e *InMailError) Error() string {
	if e.Detail == "" {
		return "inmail not sent: " + e.Reason
	}
	return fmt.Sprintf("inmail not sent: %s: %s", e.Reason, e.Detail)
}

// ProfileRef addresses a profile by URL and/or public identifier.
type ProfileRef struct {
	URL              string
	PublicIdentifier string
}

// ResolvedURL returns the profile URL, deriving it from the identifier when needed.
func (r ProfileRef) ResolvedURL() string {
	if r.URL != "" {
		return r.URL
	}
	if r.PublicIdentifier != "" {
		return "https://www.linkedin.com/in/" + url.PathEscape(r.PublicIdentifier) + "/"
	}
	return ""
}

// ID returns the public identifier, deriving it from the URL when needed.
func (r ProfileRef) ID() string {
	if r.PublicIdentifier != "" {
		return r.PublicIdentifier
	}
	return PublicIDFromURL(r.URL)
}

// PublicIDFromURL extracts the identifier from a /in/<id>/ profile URL.
// It returns "" for anything else.
func PublicIDFromURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] != "in" || parts[1] == "" {
		return ""
	}
	id, err := url.PathUnescape(parts[1])
	if err != nil {
		return parts[1]
	}
	return id
}
