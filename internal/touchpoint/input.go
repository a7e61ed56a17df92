package touchpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/tbourn/go-outreach-backend/internal/linkedin"
)

// ErrValidation is matched (errors.Is) by every input validation error.
var ErrValidation = errors.New("invalid touchpoint input")

// ValidationError describes why a touchpoint input was rejected.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }
func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// Input is a validated touchpoint payload. Concrete types are the
// pointer structs below; switch on Base().Kind or use a type switch.
type Input interface {
	Base() Common
}

// Common holds the fields every touchpoint carries.
type Common struct {
	Kind   Type   `json:"type"`
	Handle string `json:"handle" validate:"required"`
	RunID  string `json:"run_id" validate:"required,uuid"`
}

// Base returns the common fields.
func (c Common) Base() Common { return c }

type ProfileEnrich struct {
	Common
	PublicIdentifier string `json:"public_identifier,omitempty"`
	URL              string `json:"url,omitempty" validate:"omitempty,url"`
}

// Ref returns the profile address.
func (in *ProfileEnrich) Ref() linkedin.ProfileRef {
	return linkedin.ProfileRef{URL: in.URL, PublicIdentifier: in.PublicIdentifier}
}

type ProfileVisit struct {
	Common
	URL         string  `json:"url" validate:"required,url"`
	DurationS   float64 `json:"duration_s" validate:"gte=0,lte=600"`
	ScrollDepth int     `json:"scroll_depth" validate:"gte=0,lte=50"`
}

type Connect struct {
	Common
	URL              string `json:"url" validate:"required,url"`
	PublicIdentifier string `json:"public_identifier,omitempty"`
	Note             string `json:"note,omitempty" validate:"max=300"`
}

type DirectMessage struct {
	Common
	URL              string `json:"url" validate:"required,url"`
	PublicIdentifier string `json:"public_identifier,omitempty"`
	Message          string `json:"message" validate:"required,min=1"`
}

type PostReact struct {
	Common
	PostURL  string            `json:"post_url" validate:"required,url"`
	Reaction linkedin.Reaction `json:"reaction" validate:"required,oneof=LIKE CELEBRATE SUPPORT LOVE INSIGHTFUL CURIOUS"`
}

type PostComment struct {
	Common
	PostURL     string `json:"post_url" validate:"required,url"`
	CommentText string `json:"comment_text" validate:"required,min=1,max=1250"`
}

type InMail struct {
	Common
	ProfileURL string `json:"profile_url" validate:"required,url"`
	Subject    string `json:"subject,omitempty" validate:"max=200"`
	Body       string `json:"body" validate:"required,min=1"`
}

// CampaignProfile is one row of a connect-follow-up campaign.
type CampaignProfile struct {
	URL              string `json:"url" validate:"required,url"`
	PublicIdentifier string `json:"public_identifier,omitempty"`
	FollowupMessage  string `json:"followup_message,omitempty"`
	ConnectNote      string `json:"connect_note,omitempty" validate:"max=300"`
}

// ConnectFollowUp drives a batch of profiles through the outreach funnel.
type ConnectFollowUp struct {
	Common
	Profiles        []CampaignProfile `json:"profiles" validate:"required,min=1,max=500,dive"`
	SendConnectNote bool              `json:"send_connect_note"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names in error messages.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Parse validates a raw touchpoint payload and returns its typed form.
// All failures match ErrValidation.
func Parse(raw map[string]any) (Input, error) {
	t, ok := raw["type"].(string)
	if !ok || strings.TrimSpace(t) == "" {
		return nil, invalid("Touchpoint input must include 'type' field")
	}
	kind, err := ParseType(t)
	if err != nil {
		return nil, err
	}

	in := newInput(kind)
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, invalid("touchpoint input is not valid JSON: %v", err)
	}
	if err := json.Unmarshal(b, in); err != nil {
		return nil, invalid("touchpoint input does not match %s: %v", kind, err)
	}
	normalize(in)
	if err := validate.Struct(in); err != nil {
		return nil, describe(err)
	}
	if err := check(in); err != nil {
		return nil, err
	}
	return in, nil
}

// newInput allocates the payload for kind with its defaults applied.
func newInput(kind Type) Input {
	switch kind {
	case TypeProfileEnrich:
		return &ProfileEnrich{}
	case TypeProfileVisit:
		return &ProfileVisit{DurationS: 5, ScrollDepth: 3}
	case TypeConnect:
		return &Connect{}
	case TypeDirectMessage:
		return &DirectMessage{}
	case TypePostReact:
		return &PostReact{}
	case TypePostComment:
		return &PostComment{}
	case TypeInMail:
		return &InMail{}
	default:
		return &ConnectFollowUp{}
	}
}

var upper = cases.Upper(language.Und)

// normalize trims identifiers and NFC-normalizes free text typed into the browser.
func normalize(in Input) {
	switch v := in.(type) {
	case *ProfileEnrich:
		v.PublicIdentifier = strings.TrimSpace(v.PublicIdentifier)
		v.URL = strings.TrimSpace(v.URL)
	case *Connect:
		v.Note = text(v.Note)
	case *DirectMessage:
		v.Message = text(v.Message)
	case *PostReact:
		v.Reaction = linkedin.Reaction(upper.String(strings.TrimSpace(string(v.Reaction))))
	case *PostComment:
		v.CommentText = text(v.CommentText)
	case *InMail:
		v.Subject = text(v.Subject)
		v.Body = text(v.Body)
	case *ConnectFollowUp:
		for i := range v.Profiles {
			p := &v.Profiles[i]
			p.URL = strings.TrimSpace(p.URL)
			p.FollowupMessage = text(p.FollowupMessage)
			p.ConnectNote = text(p.ConnectNote)
		}
	}
}

func text(s string) string { return norm.NFC.String(strings.TrimSpace(s)) }

// check applies rules the struct tags cannot express.
func check(in Input) error {
	if v, ok := in.(*ProfileEnrich); ok && v.PublicIdentifier == "" && v.URL == "" {
		return invalid("profile_enrich requires url or public_identifier")
	}
	return nil
}

func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return invalid("%v", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		// Drop the struct name and the embedded Common segment.
		field := fe.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		field = strings.TrimPrefix(field, "Common.")
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s", field, fe.Tag()))
		}
	}
	return invalid("%s", strings.Join(msgs, "; "))
}
