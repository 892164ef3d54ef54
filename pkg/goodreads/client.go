package goodreads

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shelfmirror/shelfmirror/pkg/config"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://www.goodreads.com"

// rateLimitBackoff is the wait schedule for 429 responses, indexed by attempt.
// It is deliberately data, not recursion: the retry count is bounded by the
// schedule's length.
var rateLimitBackoff = []time.Duration{
	5 * time.Second,
	10 * time.Second,
	20 * time.Second,
}

// Client fetches and parses paginated shelf listings from the Goodreads
// review/list API. It is constructed once and injected wherever shelf pages
// are needed; there is no package-level instance.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userID     string
	apiKey     string
	limiter    *rate.Limiter
	log        logger.Logger
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
		userID:     cfg.GoodreadsUserID,
		apiKey:     cfg.GoodreadsAPIKey,
		// One request per second keeps us inside the source's rate limits and
		// doubles as the fixed inter-page delay during a sync.
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
		log:     logger.New(),
	}
}

// FetchShelfPage fetches one page of the shelf listing. An empty Records slice
// means the listing is exhausted. Rate-limit responses are retried on a
// bounded backoff schedule; network failures and exhausted retries return an
// error; malformed payloads are logged and yield an empty page so a bad parse
// never takes down a whole sync.
func (c *Client) FetchShelfPage(ctx context.Context, shelf string, page, perPage int) (*ShelfPage, error) {
	var lastStatus int

	for attempt := 0; attempt <= len(rateLimitBackoff); attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errors.WithStack(err)
		}

		body, status, err := c.get(ctx, shelf, page, perPage)
		if err != nil {
			return nil, err
		}
		lastStatus = status

		if status == http.StatusTooManyRequests {
			if attempt == len(rateLimitBackoff) {
				break
			}
			delay := rateLimitBackoff[attempt]
			c.log.Warn("rate limited by source, backing off", logger.Data{
				"shelf":   shelf,
				"page":    page,
				"attempt": attempt + 1,
				"delay":   delay.String(),
			})
			select {
			case <-ctx.Done():
				return nil, errors.WithStack(ctx.Err())
			case <-time.After(delay):
			}
			continue
		}

		if status != http.StatusOK {
			return nil, errors.Errorf("shelf listing request failed with status %d", status)
		}

		shelfPage, err := parseShelfPage(body)
		if err != nil {
			c.log.Err(err).Warn("failed to parse shelf listing page", logger.Data{
				"shelf": shelf,
				"page":  page,
			})
			return &ShelfPage{Records: []Record{}}, nil
		}
		return shelfPage, nil
	}

	return nil, errors.Errorf("rate limit retries exhausted for shelf %s page %d (status %d)", shelf, page, lastStatus)
}

func (c *Client) get(ctx context.Context, shelf string, page, perPage int) ([]byte, int, error) {
	params := url.Values{}
	params.Set("v", "2")
	params.Set("id", c.userID)
	params.Set("key", c.apiKey)
	params.Set("shelf", shelf)
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))
	params.Set("sort", "date_added")

	reqURL := c.baseURL + "/review/list?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, errors.Wrap(err, "shelf listing request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return body, resp.StatusCode, nil
}
