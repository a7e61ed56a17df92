package linkedin

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Position is one entry of the experience section.
type Position struct {
	Title   string `json:"title"`
	Company string `json:"company,omitempty"`
	Period  string `json:"period,omitempty"`
}

// Snapshot is the structured view of a scraped profile page.
type Snapshot struct {
	PublicIdentifier string     `json:"public_identifier"`
	URL              string     `json:"url"`
	FullName         string     `json:"full_name"`
	FirstName        string     `json:"first_name,omitempty"`
	LastName         string     `json:"last_name,omitempty"`
	Headline         string     `json:"headline,omitempty"`
	Location         string     `json:"location,omitempty"`
	About            string     `json:"about,omitempty"`
	ConnectionDegree string     `json:"connection_degree,omitempty"`
	Experience       []Position `json:"experience,omitempty"`

	// Raw is the unprocessed payload kept next to the snapshot.
	Raw map[string]any `json:"-"`
}

// Map returns the snapshot as a JSON-shaped map.
func (s *Snapshot) Map() map[string]any {
	b, err := json.Marshal(s)
	if err != nil {
		return map[string]any{"public_identifier": s.PublicIdentifier, "full_name": s.FullName}
	}
	out := map[string]any{}
	_ = json.Unmarshal(b, &out)
	return out
}

// RawMap returns the raw payload (never nil).
func (s *Snapshot) RawMap() map[string]any {
	if s.Raw == nil {
		return map[string]any{}
	}
	return s.Raw
}

// ParseProfile extracts a Snapshot from the HTML of a profile page.
// It returns ErrProfileUnavailable when the page has no profile name.
func ParseProfile(html string, ref ProfileRef, fetchedAt time.Time) (*Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	main := doc.Find(selMain).First()

	name := clean(main.Find("h1").First().Text())
	if name == "" {
		return nil, ErrProfileUnavailable
	}
	s := &Snapshot{
		PublicIdentifier: ref.ID(),
		URL:              ref.ResolvedURL(),
		FullName:         name,
		Headline:         clean(main.Find("div.text-body-medium").First().Text()),
		Location:         clean(main.Find("span.text-body-small.inline").First().Text()),
		About:            clean(doc.Find(`section:has(#about) div.inline-show-more-text span[aria-hidden="true"]`).First().Text()),
		ConnectionDegree: degree(doc),
	}
	if first, last, ok := strings.Cut(name, " "); ok {
		s.FirstName, s.LastName = first, strings.TrimSpace(last)
	} else {
		s.FirstName = name
	}

	doc.Find(`section:has(#experience) li.artdeco-list__item`).Each(func(_ int, li *goquery.Selection) {
		spans := li.Find(`span[aria-hidden="true"]`)
		p := Position{Title: clean(spans.Eq(0).Text())}
		if p.Title == "" {
			return
		}
		p.Company = clean(spans.Eq(1).Text())
		p.Period = clean(spans.Eq(2).Text())
		s.Experience = append(s.Experience, p)
	})

	mainHTML, _ := goquery.OuterHtml(main)
	s.Raw = map[string]any{
		"source_url": s.URL,
		"fetched_at": fetchedAt.UTC().Format(time.RFC3339),
		"main_html":  mainHTML,
	}
	return s, nil
}

// ConnectionFromHTML reads the relationship from a profile page.
func ConnectionFromHTML(html string) (ConnectionStatus, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ConnectionNone, err
	}
	return connectionStatus(doc), nil
}

func connectionStatus(doc *goquery.Document) ConnectionStatus {
	switch {
	case doc.Find(selPendingButton).Length() > 0:
		return ConnectionPending
	case degree(doc) == "1st":
		return ConnectionConnected
	default:
		return ConnectionNone
	}
}

// degree returns the connection degree badge ("1st", "2nd", "3rd+").
func degree(doc *goquery.Document) string {
	d := clean(doc.Find(selDegreeBadge).First().Text())
	if d == "" {
		return ""
	}
	return strings.Fields(d)[0]
}

// clean collapses internal whitespace.
func clean(s string) string { return strings.Join(strings.Fields(s), " ") }
