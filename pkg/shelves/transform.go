package shelves

import (
	"time"

	"github.com/shelfmirror/shelfmirror/pkg/books"
	"github.com/shelfmirror/shelfmirror/pkg/goodreads"
)

const bookLinkPrefix = "https://www.goodreads.com/book/show/"

// BookInfo is the public shape served to callers. Optional fields are omitted
// when absent rather than sent as zero values.
type BookInfo struct {
	Title           string     `json:"title"`
	Author          string     `json:"author"`
	Link            string     `json:"link"`
	ImageURL        *string    `json:"image_url,omitempty"`
	ISBN            *string    `json:"isbn,omitempty"`
	Description     *string    `json:"description,omitempty"`
	Pages           *int       `json:"pages,omitempty"`
	PublicationYear *int       `json:"publication_year,omitempty"`
	Rating          *int       `json:"rating,omitempty"`
	Review          *string    `json:"review,omitempty"`
	Shelf           string     `json:"shelf"`
	DateAdded       *time.Time `json:"date_added,omitempty"`
	DateRead        *time.Time `json:"date_read,omitempty"`
}

// PageResult is one page of shelf results. NextCursor is the next page number
// when more rows exist, absent otherwise.
type PageResult struct {
	Items      []BookInfo `json:"items"`
	HasMore    bool       `json:"has_more"`
	NextCursor *int       `json:"next_cursor,omitempty"`
}

func emptyPage() *PageResult {
	return &PageResult{Items: []BookInfo{}}
}

// bookInfoFromReview flattens a stored membership row and its book into the
// public shape. A rating of 0 means unrated and is dropped here, not at the
// storage or adapter layer.
func bookInfoFromReview(review *books.Review) BookInfo {
	info := BookInfo{
		Title:           review.Book.Title,
		Author:          review.Book.Author,
		Link:            bookLinkPrefix + review.Book.GoodreadsID,
		ImageURL:        presentString(review.Book.ImageURL),
		ISBN:            presentString(review.Book.ISBN),
		Description:     presentString(review.Book.Description),
		Pages:           review.Book.Pages,
		PublicationYear: review.Book.PublicationYear,
		Rating:          presentRating(review.Rating),
		Review:          presentString(review.ReviewText),
		Shelf:           review.Shelf,
		DateAdded:       review.DateAdded,
		DateRead:        review.DateRead,
	}
	return info
}

// bookInfoFromRecord converts a live adapter record for the fallback path.
func bookInfoFromRecord(record *goodreads.Record) BookInfo {
	return BookInfo{
		Title:           record.Title,
		Author:          record.Author,
		Link:            bookLinkPrefix + record.GoodreadsID,
		ImageURL:        presentString(record.ImageURL),
		ISBN:            presentString(record.ISBN),
		Description:     presentString(record.Description),
		Pages:           record.Pages,
		PublicationYear: record.PublicationYear,
		Rating:          presentRating(record.Rating),
		Review:          presentString(record.Review),
		Shelf:           record.Shelf,
		DateAdded:       record.DateAdded,
		DateRead:        record.DateRead,
	}
}

func presentRating(rating *int) *int {
	if rating == nil || *rating == 0 {
		return nil
	}
	return rating
}

func presentString(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
