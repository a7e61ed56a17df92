package linkedin

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ScrapeProfile opens a profile and extracts its snapshot.
func (c *Client) ScrapeProfile(ctx context.Context, ref ProfileRef) (*Snapshot, error) {
	html, err := c.openProfile(ctx, ref)
	if err != nil {
		return nil, err
	}
	return ParseProfile(html, ref, c.Now())
}

// ConnectionStatus reports the current relationship with a profile.
func (c *Client) ConnectionStatus(ctx context.Context, ref ProfileRef) (ConnectionStatus, error) {
	html, err := c.openProfile(ctx, ref)
	if err != nil {
		return ConnectionNone, err
	}
	return ConnectionFromHTML(html)
}

// SendConnectionRequest invites a profile, optionally with a note. An
// existing pending or accepted connection is reported without acting.
func (c *Client) SendConnectionRequest(ctx context.Context, ref ProfileRef, note string) (ConnectionStatus, error) {
	html, err := c.openProfile(ctx, ref)
	if err != nil {
		return ConnectionNone, err
	}
	status, err := ConnectionFromHTML(html)
	if err != nil {
		return ConnectionNone, err
	}
	if status != ConnectionNone {
		return status, nil
	}

	switch {
	case c.exists(ctx, selConnectButton):
		if err := c.page.Click(ctx, selConnectButton); err != nil {
			return ConnectionNone, err
		}
	case c.exists(ctx, selMoreActions):
		if err := c.page.Click(ctx, selMoreActions); err != nil {
			return ConnectionNone, err
		}
		if !c.exists(ctx, selMoreConnect) {
			return ConnectionNone, fmt.Errorf("%w: no connect action", ErrSkipProfile)
		}
		if err := c.page.Click(ctx, selMoreConnect); err != nil {
			return ConnectionNone, err
		}
	default:
		return ConnectionNone, fmt.Errorf("%w: no connect action", ErrSkipProfile)
	}
	if err := c.pace.Wait(ctx); err != nil {
		return ConnectionNone, err
	}

	if c.exists(ctx, selEmailRequired) {
		return ConnectionNone, fmt.Errorf("%w: email required to connect", ErrSkipProfile)
	}
	if c.exists(ctx, selLimitAlert) {
		return ConnectionNone, ErrConnectionLimit
	}

	if note != "" && c.exists(ctx, selAddNote) {
		if err := c.page.Click(ctx, selAddNote); err != nil {
			return ConnectionNone, err
		}
		if err := c.page.Type(ctx, selNoteText, note); err != nil {
			return ConnectionNone, err
		}
		if err := c.page.Click(ctx, selSendInvite); err != nil {
			return ConnectionNone, err
		}
	} else {
		send := selSendInvite
		if c.exists(ctx, selSendNoNote) {
			send = selSendNoNote
		}
		if err := c.page.Click(ctx, send); err != nil {
			return ConnectionNone, err
		}
	}
	if err := c.pace.Wait(ctx); err != nil {
		return ConnectionNone, err
	}
	if c.exists(ctx, selLimitAlert) {
		return ConnectionNone, ErrConnectionLimit
	}
	c.log.Info().Str("profile", ref.ID()).Bool("note", note != "").Msg("connection request sent")
	return ConnectionPending, nil
}

// SendMessage writes text to a connected profile. Empty text is skipped.
func (c *Client) SendMessage(ctx context.Context, ref ProfileRef, text string) (MessageStatus, error) {
	if strings.TrimSpace(text) == "" {
		return MessageSkipped, nil
	}
	if _, err := c.openProfile(ctx, ref); err != nil {
		return "", err
	}
	if !c.exists(ctx, selMessageButton) {
		return "", errors.New("message action not available")
	}
	if err := c.page.Click(ctx, selMessageButton); err != nil {
		return "", err
	}
	if err := c.page.WaitVisible(ctx, selMsgBox); err != nil {
		return "", fmt.Errorf("message box: %w", err)
	}
	if err := c.page.Type(ctx, selMsgBox, text); err != nil {
		return "", err
	}
	if err := c.pace.Wait(ctx); err != nil {
		return "", err
	}
	if err := c.page.Click(ctx, selMsgSend); err != nil {
		return "", err
	}
	if c.exists(ctx, selMsgError) {
		return "", errors.New("message rejected")
	}
	c.log.Info().Str("profile", ref.ID()).Msg("message sent")
	return MessageSent, nil
}

// SendInMail sends a paid message to a profile outside the network.
// Failures are reported as *InMailError.
func (c *Client) SendInMail(ctx context.Context, profileURL, subject, body string) error {
	if _, err := c.openProfile(ctx, ProfileRef{URL: profileURL}); err != nil {
		return err
	}
	if !c.exists(ctx, selMessageButton) {
		return &InMailError{Reason: InMailNotAvailable}
	}
	if err := c.page.Click(ctx, selMessageButton); err != nil {
		return &InMailError{Reason: InMailUIChanged, Detail: err.Error()}
	}
	if err := c.pace.Wait(ctx); err != nil {
		return err
	}
	if c.exists(ctx, selInMailBlocked) {
		return &InMailError{Reason: InMailNoCredits, Detail: "premium required"}
	}
	if c.exists(ctx, selInMailCredits) {
		if credits, err := c.page.Text(ctx, selInMailCredits); err == nil && strings.HasPrefix(credits, "0 ") {
			return &InMailError{Reason: InMailNoCredits}
		}
	}
	if !c.exists(ctx, selMsgSubject) {
		return &InMailError{Reason: InMailUIChanged, Detail: "no subject field"}
	}
	if subject != "" {
		if err := c.page.Type(ctx, selMsgSubject, subject); err != nil {
			return &InMailError{Reason: InMailUIChanged, Detail: err.Error()}
		}
	}
	if err := c.page.Type(ctx, selMsgBox, body); err != nil {
		return &InMailError{Reason: InMailUIChanged, Detail: err.Error()}
	}
	if err := c.page.Click(ctx, selMsgSend); err != nil {
		return &InMailError{Reason: InMailUIChanged, Detail: err.Error()}
	}
	if c.exists(ctx, selMsgError) {
		return &InMailError{Reason: InMailBlocked}
	}
	return nil
}

// VisitProfile opens a profile and dwells on it while scrolling.
func (c *Client) VisitProfile(ctx context.Context, profileURL string, dwell time.Duration, scrolls int) error {
	if err := c.EnsureLoggedIn(ctx); err != nil {
		return err
	}
	if err := c.page.Navigate(ctx, profileURL); err != nil {
		return err
	}
	if err := c.page.WaitVisible(ctx, selMain); err != nil {
		return fmt.Errorf("%w: %v", ErrProfileUnavailable, err)
	}
	step := dwell / time.Duration(scrolls+1)
	for i := 0; i < scrolls; i++ {
		if err := sleep(ctx, step); err != nil {
			return err
		}
		if err := c.page.Scroll(ctx); err != nil {
			return err
		}
	}
	return sleep(ctx, step)
}

// ReactToPost applies a reaction to a feed post. An existing Like is kept.
func (c *Client) ReactToPost(ctx context.Context, postURL string, reaction Reaction) error {
	if err := c.openPost(ctx, postURL); err != nil {
		return err
	}
	if reaction == ReactionLike {
		if c.exists(ctx, selLikePressed) {
			return nil
		}
		return c.page.Click(ctx, selLikeButton)
	}
	if err := c.page.Click(ctx, selReactMenu); err != nil {
		return fmt.Errorf("reactions menu: %w", err)
	}
	sel := reactionSelector(reaction)
	if err := c.page.WaitVisible(ctx, sel); err != nil {
		return fmt.Errorf("reaction %s: %w", reaction, err)
	}
	if err := c.page.Click(ctx, sel); err != nil {
		return err
	}
	return c.pace.Wait(ctx)
}

// CommentOnPost publishes text under a feed post and checks it appears.
func (c *Client) CommentOnPost(ctx context.Context, postURL, text string) error {
	if err := c.openPost(ctx, postURL); err != nil {
		return err
	}
	if err := c.page.Click(ctx, selCommentOpen); err != nil {
		return fmt.Errorf("comment button: %w", err)
	}
	if err := c.page.WaitVisible(ctx, selCommentBox); err != nil {
		return fmt.Errorf("comment box: %w", err)
	}
	if err := c.page.Type(ctx, selCommentBox, text); err != nil {
		return err
	}
	if err := c.pace.Wait(ctx); err != nil {
		return err
	}
	if err := c.page.Click(ctx, selCommentPost); err != nil {
		return err
	}
	if err := c.pace.Wait(ctx); err != nil {
		return err
	}
	listed, err := c.page.Text(ctx, selCommentsList)
	if err != nil {
		return fmt.Errorf("comments list: %w", err)
	}
	if !strings.Contains(clean(listed), prefix(clean(text), 40)) {
		return errors.New("comment not visible after posting")
	}
	return nil
}

func (c *Client) openPost(ctx context.Context, postURL string) error {
	u, err := url.Parse(postURL)
	if err != nil || !strings.HasSuffix(u.Hostname(), "linkedin.com") {
		return fmt.Errorf("not a linkedin post url: %q", postURL)
	}
	if err := c.EnsureLoggedIn(ctx); err != nil {
		return err
	}
	if err := c.page.Navigate(ctx, postURL); err != nil {
		return err
	}
	return c.page.WaitVisible(ctx, selLikeButton)
}

func prefix(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
