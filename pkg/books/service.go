package books

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shelfmirror/shelfmirror/pkg/errcodes"
	"github.com/uptrace/bun"
)

const (
	SortByTitle     = "title"
	SortByAuthor    = "author"
	SortByDateAdded = "date_added"
	SortByDateRead  = "date_read"

	SortOrderAsc  = "asc"
	SortOrderDesc = "desc"
)

// sortColumns whitelists the ORDER BY targets so user-supplied sort keys never
// reach the SQL string directly.
var sortColumns = map[string]string{
	SortByTitle:     "book.title",
	SortByAuthor:    "book.author",
	SortByDateAdded: "r.date_added",
	SortByDateRead:  "r.date_read",
}

type RetrieveBookOptions struct {
	ID          *int64
	GoodreadsID *string
}

type ListShelfOptions struct {
	Shelf           string
	Limit           *int
	Offset          *int
	SortBy          string
	SortOrder       string
	TitleFilter     *string
	AuthorFilter    *string
	RequireDateRead bool
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

// UpsertBook inserts the book or, if its Goodreads ID is already catalogued,
// overwrites the descriptive fields with the latest source values. The model's
// ID is populated either way. Calling twice with identical input leaves
// identical state.
func (svc *Service) UpsertBook(ctx context.Context, book *Book) error {
	if book.CreatedAt.IsZero() {
		book.CreatedAt = time.Now()
	}

	_, err := svc.db.
		NewInsert().
		Model(book).
		On("CONFLICT (goodreads_id) DO UPDATE").
		Set("title = EXCLUDED.title").
		Set("author = EXCLUDED.author").
		Set("isbn = EXCLUDED.isbn").
		Set("image_url = EXCLUDED.image_url").
		Set("description = EXCLUDED.description").
		Set("pages = EXCLUDED.pages").
		Set("publication_year = EXCLUDED.publication_year").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// UpsertReview inserts or replaces the membership row for (book, shelf). The
// unique constraint guarantees at most one row per pair.
func (svc *Service) UpsertReview(ctx context.Context, review *Review) error {
	if review.CreatedAt.IsZero() {
		review.CreatedAt = time.Now()
	}
	if review.ReadCount == 0 {
		review.ReadCount = 1
	}

	_, err := svc.db.
		NewInsert().
		Model(review).
		On("CONFLICT (book_id, shelf) DO UPDATE").
		Set("rating = EXCLUDED.rating").
		Set("review = EXCLUDED.review").
		Set("date_added = EXCLUDED.date_added").
		Set("date_read = EXCLUDED.date_read").
		Set("date_started = EXCLUDED.date_started").
		Set("read_count = EXCLUDED.read_count").
		Set("owned = EXCLUDED.owned").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func (svc *Service) RetrieveBook(ctx context.Context, opts RetrieveBookOptions) (*Book, error) {
	book := &Book{}

	q := svc.db.
		NewSelect().
		Model(book)

	if opts.ID != nil {
		q = q.Where("b.id = ?", *opts.ID)
	}
	if opts.GoodreadsID != nil {
		q = q.Where("b.goodreads_id = ?", *opts.GoodreadsID)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Book")
		}
		return nil, errors.WithStack(err)
	}

	return book, nil
}

// ListShelf returns the membership rows for one shelf with their books loaded,
// ordered by the requested sort key and filtered by case-insensitive substring
// matches on title and author.
func (svc *Service) ListShelf(ctx context.Context, opts ListShelfOptions) ([]*Review, error) {
	reviews := []*Review{}

	q := svc.db.
		NewSelect().
		Model(&reviews).
		Relation("Book").
		Where("r.shelf = ?", opts.Shelf)

	if opts.RequireDateRead {
		q = q.Where("r.date_read IS NOT NULL")
	}
	if opts.TitleFilter != nil && *opts.TitleFilter != "" {
		q = q.Where("LOWER(book.title) LIKE ?", "%"+strings.ToLower(*opts.TitleFilter)+"%")
	}
	if opts.AuthorFilter != nil && *opts.AuthorFilter != "" {
		q = q.Where("LOWER(book.author) LIKE ?", "%"+strings.ToLower(*opts.AuthorFilter)+"%")
	}

	column, ok := sortColumns[opts.SortBy]
	if ok {
		order := "ASC"
		if strings.EqualFold(opts.SortOrder, SortOrderDesc) {
			order = "DESC"
		}
		q = q.OrderExpr(column + " " + order)
	} else {
		// Mirrors the shelf pages' default: most recently finished first,
		// falling back to when the book was added.
		q = q.OrderExpr("r.date_read DESC").OrderExpr("r.date_added DESC")
	}
	// Stable tiebreak so pagination never skips or repeats rows.
	q = q.OrderExpr("r.id ASC")

	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}

	err := q.Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return reviews, nil
}

// ListShelfGoodreadsIDs returns the Goodreads IDs of every book currently
// stored under the given shelf. The sync engine diffs this against the source
// listing to find orphans.
func (svc *Service) ListShelfGoodreadsIDs(ctx context.Context, shelf string) ([]string, error) {
	ids := []string{}

	err := svc.db.
		NewSelect().
		Model((*Review)(nil)).
		Join("JOIN books AS b ON b.id = r.book_id").
		Column("b.goodreads_id").
		Where("r.shelf = ?", shelf).
		Scan(ctx, &ids)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return ids, nil
}

func (svc *Service) DeleteReview(ctx context.Context, bookID int64, shelf string) error {
	_, err := svc.db.
		NewDelete().
		Model((*Review)(nil)).
		Where("book_id = ?", bookID).
		Where("shelf = ?", shelf).
		Exec(ctx)
	return errors.WithStack(err)
}

// DeleteReviewsExceptShelf removes the book's membership rows on every shelf
// other than the one given. This is what keeps a book on a single shelf when
// the source reports it has moved.
func (svc *Service) DeleteReviewsExceptShelf(ctx context.Context, bookID int64, shelf string) (int64, error) {
	res, err := svc.db.
		NewDelete().
		Model((*Review)(nil)).
		Where("book_id = ?", bookID).
		Where("shelf != ?", shelf).
		Exec(ctx)
	if err != nil {
		return 0, errors.WithStack(err)
	}

	deleted, err := res.RowsAffected()
	return deleted, errors.WithStack(err)
}

// DeleteOrphanReviews removes membership rows under shelf whose book is not in
// keepGoodreadsIDs. Only the membership rows are deleted; the books stay
// catalogued. Callers must not invoke this with an empty keep set — an empty
// source listing is treated as a failed fetch, not an empty shelf.
func (svc *Service) DeleteOrphanReviews(ctx context.Context, shelf string, keepGoodreadsIDs []string) (int64, error) {
	if len(keepGoodreadsIDs) == 0 {
		return 0, errors.New("refusing to delete all reviews for shelf " + shelf)
	}

	res, err := svc.db.
		NewDelete().
		Model((*Review)(nil)).
		Where("shelf = ?", shelf).
		Where("book_id NOT IN (SELECT id FROM books WHERE goodreads_id IN (?))", bun.In(keepGoodreadsIDs)).
		Exec(ctx)
	if err != nil {
		return 0, errors.WithStack(err)
	}

	deleted, err := res.RowsAffected()
	return deleted, errors.WithStack(err)
}
