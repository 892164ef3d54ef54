package goodreads

import "time"

// Record is the flat, validated shape of one review entry from the Goodreads
// shelf listing. All source-specific parsing quirks stop at this boundary.
type Record struct {
	GoodreadsID     string
	Title           string
	Author          string
	ISBN            *string
	ImageURL        *string
	Description     *string
	Pages           *int
	PublicationYear *int

	// Shelf is the record's own shelf tag as reported by the source. It can
	// disagree with the shelf the listing was fetched for, and when it does,
	// the record's own tag wins.
	Shelf       string
	Rating      *int
	Review      *string
	DateAdded   *time.Time
	DateRead    *time.Time
	DateStarted *time.Time
	ReadCount   int
	Owned       bool
}

// Valid reports whether the record carries the minimum fields required to
// catalogue it. Invalid records are skipped by the sync engine, not fatal.
func (r *Record) Valid() bool {
	return r.GoodreadsID != "" && r.Title != "" && r.Author != ""
}

// ShelfPage is one page of a shelf listing. An empty Records slice signals the
// end of the listing to the caller.
type ShelfPage struct {
	Records []Record
	Start   int
	End     int
	Total   int
}

// HasMore reports whether the source claims more pages beyond this one.
func (p *ShelfPage) HasMore() bool {
	return p.End < p.Total
}
