package books

import (
	"time"

	"github.com/uptrace/bun"
)

// Book is a catalogued work mirrored from Goodreads. The Goodreads ID is its
// stable external identity; the descriptive fields are overwritten on every
// re-sync with whatever the source currently reports.
type Book struct {
	bun.BaseModel `bun:"table:books,alias:b"`

	ID              int64     `bun:",pk,autoincrement" json:"id"`
	GoodreadsID     string    `bun:",nullzero" json:"goodreads_id"`
	Title           string    `bun:",nullzero" json:"title"`
	Author          string    `bun:",nullzero" json:"author"`
	ISBN            *string   `json:"isbn,omitempty"`
	ImageURL        *string   `json:"image_url,omitempty"`
	Description     *string   `json:"description,omitempty"`
	Pages           *int      `json:"pages,omitempty"`
	PublicationYear *int      `json:"publication_year,omitempty"`
	CreatedAt       time.Time `bun:",nullzero,default:current_timestamp" json:"created_at"`
}

// Review is a single (book, shelf) membership with the user's rating, review
// text, and reading dates. A book has at most one row per shelf, and the sync
// engine keeps it down to one shelf total.
type Review struct {
	bun.BaseModel `bun:"table:reviews,alias:r"`

	ID          int64      `bun:",pk,autoincrement" json:"id"`
	BookID      int64      `bun:",nullzero" json:"book_id"`
	Book        *Book      `bun:"rel:belongs-to,join:book_id=id" json:"book,omitempty"`
	Shelf       string     `bun:",nullzero" json:"shelf"`
	Rating      *int       `json:"rating,omitempty"`
	ReviewText  *string    `bun:"review" json:"review,omitempty"`
	DateAdded   *time.Time `json:"date_added,omitempty"`
	DateRead    *time.Time `json:"date_read,omitempty"`
	DateStarted *time.Time `json:"date_started,omitempty"`
	ReadCount   int        `bun:",nullzero,default:1" json:"read_count"`
	Owned       bool       `json:"owned"`
	CreatedAt   time.Time  `bun:",nullzero,default:current_timestamp" json:"created_at"`
}
