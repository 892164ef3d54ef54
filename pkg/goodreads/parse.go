package goodreads

import (
	"encoding/xml"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// goodreadsTime is the timestamp format used throughout the review listing,
// e.g. "Tue Nov 14 09:08:56 -0800 2023".
const goodreadsTime = "Mon Jan 02 15:04:05 -0700 2006"

var dateLayouts = []string{
	goodreadsTime,
	time.RFC3339,
	"2006-01-02",
}

type goodreadsResponse struct {
	XMLName xml.Name   `xml:"GoodreadsResponse"`
	Reviews reviewsXML `xml:"reviews"`
}

type reviewsXML struct {
	Start   int         `xml:"start,attr"`
	End     int         `xml:"end,attr"`
	Total   int         `xml:"total,attr"`
	Reviews []reviewXML `xml:"review"`
}

type reviewXML struct {
	Book      bookXML    `xml:"book"`
	Rating    string     `xml:"rating"`
	Body      string     `xml:"body"`
	Shelves   []shelfXML `xml:"shelves>shelf"`
	DateAdded string     `xml:"date_added"`
	DateRead  string     `xml:"date_read"`
	StartedAt string     `xml:"started_at"`
	ReadCount string     `xml:"read_count"`
	Owned     string     `xml:"owned"`
}

type shelfXML struct {
	Name string `xml:"name,attr"`
}

type bookXML struct {
	ID              nillableText `xml:"id"`
	Title           nillableText `xml:"title"`
	ISBN            nillableText `xml:"isbn"`
	ImageURL        nillableText `xml:"image_url"`
	Description     nillableText `xml:"description"`
	NumPages        nillableText `xml:"num_pages"`
	PublicationYear nillableText `xml:"publication_year"`
	Authors         []authorXML  `xml:"authors>author"`
}

type authorXML struct {
	Name string `xml:"name"`
}

// nillableText handles elements the source marks absent with nil="true"
// instead of omitting, e.g. <isbn nil="true"/>.
type nillableText struct {
	Nil   bool   `xml:"nil,attr"`
	Value string `xml:",chardata"`
}

func (n nillableText) text() string {
	if n.Nil {
		return ""
	}
	return strings.TrimSpace(n.Value)
}

// parseShelfPage decodes one review/list payload into flat records. Malformed
// XML returns an error; individual records are never dropped here beyond what
// the payload itself omits — validation is the caller's call.
func parseShelfPage(data []byte) (*ShelfPage, error) {
	resp := goodreadsResponse{}
	if err := xml.Unmarshal(data, &resp); err != nil {
		return nil, errors.Wrap(err, "failed to parse shelf listing")
	}

	page := &ShelfPage{
		Records: make([]Record, 0, len(resp.Reviews.Reviews)),
		Start:   resp.Reviews.Start,
		End:     resp.Reviews.End,
		Total:   resp.Reviews.Total,
	}

	for _, rev := range resp.Reviews.Reviews {
		page.Records = append(page.Records, recordFromXML(rev))
	}

	return page, nil
}

func recordFromXML(rev reviewXML) Record {
	rec := Record{
		GoodreadsID:     rev.Book.ID.text(),
		Title:           rev.Book.Title.text(),
		ISBN:            textOrNil(rev.Book.ISBN),
		ImageURL:        textOrNil(rev.Book.ImageURL),
		Description:     textOrNil(rev.Book.Description),
		Pages:           intOrNil(rev.Book.NumPages.text()),
		PublicationYear: intOrNil(rev.Book.PublicationYear.text()),
		Rating:          intOrNil(rev.Rating),
		Review:          stringOrNil(rev.Body),
		DateAdded:       dateOrNil(rev.DateAdded),
		DateRead:        dateOrNil(rev.DateRead),
		DateStarted:     dateOrNil(rev.StartedAt),
		ReadCount:       intOrDefault(rev.ReadCount, 1),
		Owned:           intOrDefault(rev.Owned, 0) != 0,
	}

	// Only the first/primary author is kept.
	if len(rev.Book.Authors) > 0 {
		rec.Author = strings.TrimSpace(rev.Book.Authors[0].Name)
	}
	if len(rev.Shelves) > 0 {
		rec.Shelf = rev.Shelves[0].Name
	}

	return rec
}

func textOrNil(n nillableText) *string {
	return stringOrNil(n.text())
}

func stringOrNil(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// intOrNil coerces failed numeric parses to absent, never to zero.
func intOrNil(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}

func intOrDefault(s string, def int) int {
	if n := intOrNil(s); n != nil {
		return *n
	}
	return def
}

func dateOrNil(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
