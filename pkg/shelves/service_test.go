package shelves

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shelfmirror/shelfmirror/pkg/books"
	"github.com/shelfmirror/shelfmirror/pkg/goodreads"
	"github.com/shelfmirror/shelfmirror/pkg/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

type seedOptions struct {
	rating *int
	review *string
	added  *time.Time
	read   *time.Time
}

func seedBook(t *testing.T, db *bun.DB, goodreadsID, title, author, shelf string, opts seedOptions) {
	t.Helper()
	ctx := context.Background()
	svc := books.NewService(db)

	book := &books.Book{GoodreadsID: goodreadsID, Title: title, Author: author}
	require.NoError(t, svc.UpsertBook(ctx, book))

	review := &books.Review{
		BookID:     book.ID,
		Shelf:      shelf,
		Rating:     opts.rating,
		ReviewText: opts.review,
		DateAdded:  opts.added,
		DateRead:   opts.read,
	}
	require.NoError(t, svc.UpsertReview(ctx, review))
}

// recordingFetcher tracks fallback invocations.
type recordingFetcher struct {
	calls   int
	records []goodreads.Record
	err     error
}

func (f *recordingFetcher) FetchShelfPage(_ context.Context, shelf string, _, _ int) (*goodreads.ShelfPage, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	records := make([]goodreads.Record, len(f.records))
	copy(records, f.records)
	for i := range records {
		if records[i].Shelf == "" {
			records[i].Shelf = shelf
		}
	}
	return &goodreads.ShelfPage{Records: records, Start: 1, End: len(records), Total: len(records)}, nil
}

func intPtr(n int) *int {
	return &n
}

func strPtr(s string) *string {
	return &s
}

func TestGetShelf_Pagination(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)

	base := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		added := base.Add(time.Duration(i) * time.Hour)
		seedBook(t, db, fmt.Sprintf("id-%02d", i), fmt.Sprintf("Book %02d", i), "Author", "read", seedOptions{added: &added})
	}

	svc := NewService(db, nil)

	first := svc.GetShelf(ctx, "read", 0, 20, ShelfQueryOptions{})
	assert.Len(t, first.Items, 20)
	assert.True(t, first.HasMore)
	require.NotNil(t, first.NextCursor)
	assert.Equal(t, 1, *first.NextCursor)

	second := svc.GetShelf(ctx, "read", 1, 20, ShelfQueryOptions{})
	assert.Len(t, second.Items, 5)
	assert.False(t, second.HasMore)
	assert.Nil(t, second.NextCursor)

	// No row appears on both pages.
	seen := map[string]bool{}
	for _, item := range append(first.Items, second.Items...) {
		require.False(t, seen[item.Link], "row %s served twice", item.Link)
		seen[item.Link] = true
	}
}

func TestGetShelf_FallbackBoundary(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)

	fetcher := &recordingFetcher{records: []goodreads.Record{
		{GoodreadsID: "1", Title: "Dune", Author: "Frank Herbert"},
	}}
	svc := NewService(db, fetcher)

	result := svc.GetShelf(ctx, "read", 0, 20, ShelfQueryOptions{})
	assert.Equal(t, 1, fetcher.calls, "an empty store falls back to the source on the first page")
	require.Len(t, result.Items, 1)
	assert.Equal(t, "Dune", result.Items[0].Title)
	assert.Equal(t, "https://www.goodreads.com/book/show/1", result.Items[0].Link)
	assert.False(t, result.HasMore, "fallback results don't paginate")

	result = svc.GetShelf(ctx, "read", 1, 20, ShelfQueryOptions{})
	assert.Equal(t, 1, fetcher.calls, "later pages never fall back")
	assert.Empty(t, result.Items)
}

func TestGetShelf_FallbackFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)

	fetcher := &recordingFetcher{err: errors.New("connection refused")}
	svc := NewService(db, fetcher)

	result := svc.GetShelf(ctx, "read", 0, 20, ShelfQueryOptions{})
	assert.Empty(t, result.Items, "a failed fallback degrades to an empty page")
	assert.False(t, result.HasMore)
}

func TestGetShelf_StorageFailureDegrades(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)

	// Simulate an unavailable store.
	_, err := db.Exec("DROP TABLE reviews")
	require.NoError(t, err)

	svc := NewService(db, nil)

	result := svc.GetShelf(ctx, "read", 0, 20, ShelfQueryOptions{})
	require.NotNil(t, result)
	assert.Empty(t, result.Items)

	assert.Empty(t, svc.GetCurrentlyReading(ctx))
	assert.Empty(t, svc.GetRecentlyRead(ctx, 10))
}

func TestGetShelf_RatingCoercion(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)

	seedBook(t, db, "1", "Unrated", "Author", "read", seedOptions{rating: intPtr(0)})
	seedBook(t, db, "2", "Rated", "Author", "read", seedOptions{rating: intPtr(4)})

	svc := NewService(db, nil)
	result := svc.GetShelf(ctx, "read", 0, 20, ShelfQueryOptions{SortBy: books.SortByTitle, SortOrder: books.SortOrderDesc})

	require.Len(t, result.Items, 2)
	assert.Equal(t, "Unrated", result.Items[0].Title)
	assert.Nil(t, result.Items[0].Rating, "a zero rating reads as unrated")
	require.NotNil(t, result.Items[1].Rating)
	assert.Equal(t, 4, *result.Items[1].Rating)
}

func TestGetShelf_EmptyReviewOmitted(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)

	seedBook(t, db, "1", "Book", "Author", "read", seedOptions{review: strPtr("")})

	svc := NewService(db, nil)
	result := svc.GetShelf(ctx, "read", 0, 20, ShelfQueryOptions{})

	require.Len(t, result.Items, 1)
	assert.Nil(t, result.Items[0].Review)
}

func TestGetShelf_TitleFilter(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)

	seedBook(t, db, "1", "Dune Messiah", "Frank Herbert", "to-read", seedOptions{})
	seedBook(t, db, "2", "Foundation", "Isaac Asimov", "to-read", seedOptions{})

	svc := NewService(db, nil)
	result := svc.GetShelf(ctx, "to-read", 0, 20, ShelfQueryOptions{TitleFilter: strPtr("dune")})

	require.Len(t, result.Items, 1, "filters match case-insensitive substrings")
	assert.Equal(t, "Dune Messiah", result.Items[0].Title)
}

func TestGetShelf_SortByTitle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)

	seedBook(t, db, "1", "Zen", "A", "to-read", seedOptions{})
	seedBook(t, db, "2", "Abaddon", "B", "to-read", seedOptions{})

	svc := NewService(db, nil)
	result := svc.GetShelf(ctx, "to-read", 0, 20, ShelfQueryOptions{SortBy: books.SortByTitle, SortOrder: books.SortOrderAsc})

	require.Len(t, result.Items, 2)
	assert.Equal(t, "Abaddon", result.Items[0].Title)
	assert.Equal(t, "Zen", result.Items[1].Title)
}

func TestGetCurrentlyReading(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)

	older := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	seedBook(t, db, "1", "Older", "Author", "currently-reading", seedOptions{added: &older})
	seedBook(t, db, "2", "Newer", "Author", "currently-reading", seedOptions{added: &newer})
	seedBook(t, db, "3", "Elsewhere", "Author", "read", seedOptions{})

	svc := NewService(db, nil)
	items := svc.GetCurrentlyReading(ctx)

	require.Len(t, items, 2)
	assert.Equal(t, "Newer", items[0].Title, "most recently added first")
	assert.Equal(t, "Older", items[1].Title)
}

func TestGetRecentlyRead(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)

	jan := time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)
	may := time.Date(2024, time.May, 10, 0, 0, 0, 0, time.UTC)
	seedBook(t, db, "1", "January Read", "Author", "read", seedOptions{read: &jan})
	seedBook(t, db, "2", "May Read", "Author", "read", seedOptions{read: &may})
	seedBook(t, db, "3", "Never Finished", "Author", "read", seedOptions{})

	svc := NewService(db, nil)

	items := svc.GetRecentlyRead(ctx, 10)
	require.Len(t, items, 2, "books without a finish date are excluded")
	assert.Equal(t, "May Read", items[0].Title)
	assert.Equal(t, "January Read", items[1].Title)

	items = svc.GetRecentlyRead(ctx, 1)
	require.Len(t, items, 1)
	assert.Equal(t, "May Read", items[0].Title)
}

func TestGetRecentlyReadPaginated(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)

	base := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		read := base.Add(time.Duration(i) * 24 * time.Hour)
		seedBook(t, db, fmt.Sprintf("%d", i), fmt.Sprintf("Book %d", i), "Author", "read", seedOptions{read: &read})
	}

	svc := NewService(db, nil)

	first := svc.GetRecentlyReadPaginated(ctx, 3, 0)
	assert.Len(t, first.Items, 3)
	assert.True(t, first.HasMore)

	second := svc.GetRecentlyReadPaginated(ctx, 3, 3)
	assert.Len(t, second.Items, 2)
	assert.False(t, second.HasMore)
}

func TestGetWantToReadPaginated(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)

	seedBook(t, db, "1", "Dune Messiah", "Frank Herbert", "to-read", seedOptions{})
	seedBook(t, db, "2", "Foundation", "Isaac Asimov", "to-read", seedOptions{})
	seedBook(t, db, "3", "Hyperion", "Dan Simmons", "to-read", seedOptions{})

	svc := NewService(db, nil)

	result := svc.GetWantToReadPaginated(ctx, 2, 0, ShelfQueryOptions{SortBy: books.SortByAuthor, SortOrder: books.SortOrderAsc})
	require.Len(t, result.Items, 2)
	assert.True(t, result.HasMore)
	assert.Equal(t, "Hyperion", result.Items[0].Title, "Dan Simmons sorts first by author")

	filtered := svc.GetWantToReadPaginated(ctx, 10, 0, ShelfQueryOptions{AuthorFilter: strPtr("herbert")})
	require.Len(t, filtered.Items, 1)
	assert.Equal(t, "Dune Messiah", filtered.Items[0].Title)
}
