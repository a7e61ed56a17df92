// Package touchpoint defines the closed set of outreach actions, their
// validated inputs, and the executors that run them against a LinkedIn
// automation session.
package touchpoint

import "fmt"

// Type identifies a touchpoint.
type Type string

const (
	TypeProfileEnrich   Type = "profile_enrich"
	TypeProfileVisit    Type = "profile_visit"
	TypeConnect         Type = "connect"
	TypeDirectMessage   Type = "direct_message"
	TypePostReact       Type = "post_react"
	TypePostComment     Type = "post_comment"
	TypeInMail          Type = "inmail"
	TypeConnectFollowUp Type = "connect_follow_up"
)

// Types lists every supported touchpoint type.
var Types = []Type{
	TypeProfileEnrich, TypeProfileVisit, TypeConnect, TypeDirectMessage,
	TypePostReact, TypePostComment, TypeInMail, TypeConnectFollowUp,
}

// Category groups touchpoint types by the quota counter they consume.
type Category int

const (
	ReadOnly Category = iota
	Connection
	Message
	Post
)

func (c Category) String() string {
	switch c {
	case Connection:
		return "connection"
	case Message:
		return "message"
	case Post:
		return "post"
	default:
		return "read_only"
	}
}

// Category reports the quota category of t. The campaign type accounts
// per step while it runs, so it is read-only at dispatch time.
func (t Type) Category() Category {
	switch t {
	case TypeConnect:
		return Connection
	case TypeDirectMessage, TypeInMail:
		return Message
	case TypePostReact, TypePostComment:
		return Post
	default:
		return ReadOnly
	}
}

// ParseType validates s against the closed set of types.
func ParseType(s string) (Type, error) {
	for _, t := range Types {
		if string(t) == s {
			return t, nil
		}
	}
	return "", &ValidationError{Msg: fmt.Sprintf("Invalid touchpoint type: %s", s)}
}
