package shelves

import (
	"context"

	"github.com/robinjoseph08/golib/logger"
	"github.com/shelfmirror/shelfmirror/pkg/books"
	"github.com/shelfmirror/shelfmirror/pkg/config"
	"github.com/shelfmirror/shelfmirror/pkg/goodreads"
	"github.com/uptrace/bun"
)

const (
	defaultPageSize = 20
	fallbackPage    = 1
)

// ShelfFetcher is the fallback slice of the source client. It may be nil, in
// which case the fallback path is disabled and empty shelves read as empty.
type ShelfFetcher interface {
	FetchShelfPage(ctx context.Context, shelf string, page, perPage int) (*goodreads.ShelfPage, error)
}

// Service is the read side. It serves shelf listings cache-first and never
// returns an error: storage failures degrade to empty results with a warning
// so callers always get a well-formed page.
type Service struct {
	bookService *books.Service
	fetcher     ShelfFetcher
	log         logger.Logger
}

func NewService(db *bun.DB, fetcher ShelfFetcher) *Service {
	return &Service{
		bookService: books.NewService(db),
		fetcher:     fetcher,
		log:         logger.New(),
	}
}

type ShelfQueryOptions struct {
	SortBy       string
	SortOrder    string
	TitleFilter  *string
	AuthorFilter *string
}

// GetShelf returns one page of a shelf. Pages are zero-based. When the store
// has no rows for the first page, the live source is consulted directly;
// later pages never fall back, so pagination stays within a single source.
func (svc *Service) GetShelf(ctx context.Context, shelf string, page, pageSize int, opts ShelfQueryOptions) *PageResult {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if page < 0 {
		page = 0
	}

	// Over-fetch by one row to learn whether another page exists without a
	// second count query.
	limit := pageSize + 1
	offset := page * pageSize

	reviews, err := svc.bookService.ListShelf(ctx, books.ListShelfOptions{
		Shelf:        shelf,
		Limit:        &limit,
		Offset:       &offset,
		SortBy:       opts.SortBy,
		SortOrder:    opts.SortOrder,
		TitleFilter:  opts.TitleFilter,
		AuthorFilter: opts.AuthorFilter,
	})
	if err != nil {
		svc.log.Err(err).Warn("shelf query failed, serving empty page", logger.Data{"shelf": shelf, "page": page})
		return emptyPage()
	}

	if len(reviews) == 0 {
		if page == 0 {
			return svc.fallback(ctx, shelf, pageSize)
		}
		return emptyPage()
	}

	result := &PageResult{Items: make([]BookInfo, 0, pageSize)}
	if len(reviews) > pageSize {
		reviews = reviews[:pageSize]
		result.HasMore = true
		next := page + 1
		result.NextCursor = &next
	}
	for _, review := range reviews {
		result.Items = append(result.Items, bookInfoFromReview(review))
	}

	return result
}

// fallback serves the first page straight from the source when the store has
// nothing, unfiltered and in source order. The result is never paginated
// further: a next cursor would land on the store-backed path and come back
// empty.
func (svc *Service) fallback(ctx context.Context, shelf string, pageSize int) *PageResult {
	if svc.fetcher == nil {
		return emptyPage()
	}

	svc.log.Info("store has no rows for shelf, falling back to source", logger.Data{"shelf": shelf})

	page, err := svc.fetcher.FetchShelfPage(ctx, shelf, fallbackPage, pageSize)
	if err != nil {
		svc.log.Err(err).Warn("source fallback failed, serving empty page", logger.Data{"shelf": shelf})
		return emptyPage()
	}

	result := &PageResult{Items: make([]BookInfo, 0, len(page.Records))}
	for i := range page.Records {
		record := &page.Records[i]
		if !record.Valid() {
			continue
		}
		result.Items = append(result.Items, bookInfoFromRecord(record))
	}

	return result
}

// GetCurrentlyReading returns the whole currently-reading shelf, most recently
// started first.
func (svc *Service) GetCurrentlyReading(ctx context.Context) []BookInfo {
	reviews, err := svc.bookService.ListShelf(ctx, books.ListShelfOptions{
		Shelf:     config.ShelfCurrentlyReading,
		SortBy:    books.SortByDateAdded,
		SortOrder: books.SortOrderDesc,
	})
	if err != nil {
		svc.log.Err(err).Warn("currently-reading query failed, serving empty list")
		return []BookInfo{}
	}

	items := make([]BookInfo, 0, len(reviews))
	for _, review := range reviews {
		items = append(items, bookInfoFromReview(review))
	}
	return items
}

// GetRecentlyRead returns up to limit finished books, most recently finished
// first. Books without a finish date are excluded.
func (svc *Service) GetRecentlyRead(ctx context.Context, limit int) []BookInfo {
	if limit <= 0 {
		limit = defaultPageSize
	}

	reviews, err := svc.bookService.ListShelf(ctx, books.ListShelfOptions{
		Shelf:           config.ShelfRead,
		Limit:           &limit,
		SortBy:          books.SortByDateRead,
		SortOrder:       books.SortOrderDesc,
		RequireDateRead: true,
	})
	if err != nil {
		svc.log.Err(err).Warn("recently-read query failed, serving empty list")
		return []BookInfo{}
	}

	items := make([]BookInfo, 0, len(reviews))
	for _, review := range reviews {
		items = append(items, bookInfoFromReview(review))
	}
	return items
}

// GetRecentlyReadPaginated is the offset variant of GetRecentlyRead.
func (svc *Service) GetRecentlyReadPaginated(ctx context.Context, limit, offset int) *PageResult {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if offset < 0 {
		offset = 0
	}

	overfetch := limit + 1
	reviews, err := svc.bookService.ListShelf(ctx, books.ListShelfOptions{
		Shelf:           config.ShelfRead,
		Limit:           &overfetch,
		Offset:          &offset,
		SortBy:          books.SortByDateRead,
		SortOrder:       books.SortOrderDesc,
		RequireDateRead: true,
	})
	if err != nil {
		svc.log.Err(err).Warn("recently-read query failed, serving empty page")
		return emptyPage()
	}

	return pageFromReviews(reviews, limit)
}

// GetWantToReadPaginated pages through the to-read shelf with optional sort
// and case-insensitive substring filters.
func (svc *Service) GetWantToReadPaginated(ctx context.Context, limit, offset int, opts ShelfQueryOptions) *PageResult {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if offset < 0 {
		offset = 0
	}

	overfetch := limit + 1
	reviews, err := svc.bookService.ListShelf(ctx, books.ListShelfOptions{
		Shelf:        config.ShelfToRead,
		Limit:        &overfetch,
		Offset:       &offset,
		SortBy:       opts.SortBy,
		SortOrder:    opts.SortOrder,
		TitleFilter:  opts.TitleFilter,
		AuthorFilter: opts.AuthorFilter,
	})
	if err != nil {
		svc.log.Err(err).Warn("want-to-read query failed, serving empty page")
		return emptyPage()
	}

	return pageFromReviews(reviews, limit)
}

func pageFromReviews(reviews []*books.Review, limit int) *PageResult {
	result := &PageResult{Items: make([]BookInfo, 0, limit)}
	if len(reviews) > limit {
		reviews = reviews[:limit]
		result.HasMore = true
	}
	for _, review := range reviews {
		result.Items = append(result.Items, bookInfoFromReview(review))
	}
	return result
}
