package linkedin

// Pages.
const (
	feedURL  = "https://www.linkedin.com/feed/"
	loginURL = "https://www.linkedin.com/login"
)

// Login form.
const (
	selUsername    = "input#username"
	selPassword    = "input#password"
	selLoginSubmit = `button[type="submit"]`
)

// Profile top card.
const (
	selMain           = "main"
	selPendingButton  = `main button[aria-label^="Pending"]`
	selConnectButton  = `main button[aria-label^="Invite"][aria-label$="to connect"]`
	selMoreActions    = `main button[aria-label="More actions"]`
	selMoreConnect    = `main div[role="button"][aria-label^="Invite"][aria-label$="to connect"]`
	selMessageButton  = `main button[aria-label^="Message"]`
	selDegreeBadge    = "main span.dist-value"
)

// Invitation modal.
const (
	selAddNote       = `button[aria-label="Add a note"]`
	selNoteText      = `textarea[name="message"]`
	selSendInvite    = `button[aria-label="Send invitation"]`
	selSendNoNote    = `button[aria-label="Send without a note"]`
	selEmailRequired = `div[role="dialog"] input[name="email"]`
	selLimitAlert    = `div[role="dialog"] .ip-fuse-limit-alert`
)

// Messaging overlay.
const (
	selMsgBox        = "div.msg-form__contenteditable"
	selMsgSend       = "button.msg-form__send-button"
	selMsgSubject    = `input[name="subject"]`
	selInMailCredits = ".msg-inmail-credits-display"
	selInMailBlocked = ".msg-form__premium-upsell"
	selMsgError      = ".msg-form__error"
)

// Feed posts.
const (
	selReactMenu    = `button[aria-label="Open reactions menu"]`
	selLikeButton   = `button[aria-label^="React Like"]`
	selLikePressed  = `button[aria-label^="React Like"][aria-pressed="true"]`
	selCommentOpen  = `button[aria-label="Comment"]`
	selCommentBox   = `div.comments-comment-box__form div.ql-editor[contenteditable="true"]`
	selCommentPost  = "button.comments-comment-box__submit-button"
	selCommentsList = "div.comments-comments-list"
)

func reactionSelector(r Reaction) string {
	return `button[aria-label="` + r.label() + `"]`
}
