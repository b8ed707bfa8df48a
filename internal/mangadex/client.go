package mangadex

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/phuslu/log"
)

// MangaDex API base (public)
const DefaultBaseURL = "https://api.mangadex.org"

// Provider issues the four read calls the service needs and hands back
// the raw response body. It does not interpret the contents.
type Provider interface {
	Search(ctx context.Context, title string, limit int, includes, contentRating string) ([]byte, error)
	Feed(ctx context.Context, mangaID, language string, limit int, order, includes, contentRating string) ([]byte, error)
	Aggregate(ctx context.Context, mangaID, language string) ([]byte, error)
	ChapterByNumber(ctx context.Context, mangaID, chapter, language, order string, limit int, contentRating, includes string) ([]byte, error)
}

// Client is the HTTP Provider for api.mangadex.org.
type Client struct {
	BaseURL   string
	UserAgent string
	HTTP      *http.Client
}

var _ Provider = (*Client)(nil)

func NewClient(baseURL, userAgent string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	return &Client{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		UserAgent: userAgent,
		HTTP:      &http.Client{Timeout: timeout},
	}
}

func (c *Client) Search(ctx context.Context, title string, limit int, includes, contentRating string) ([]byte, error) {
	q := url.Values{}
	q.Set("title", title)
	q.Set("limit", strconv.Itoa(limit))
	q.Add("includes[]", includes)
	q.Add("contentRating[]", contentRating)
	return c.get(ctx, "/manga", q)
}

func (c *Client) Feed(ctx context.Context, mangaID, language string, limit int, order, includes, contentRating string) ([]byte, error) {
	q := url.Values{}
	q.Add("translatedLanguage[]", language)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("order[readableAt]", order)
	q.Add("includes[]", includes)
	q.Add("contentRating[]", contentRating)
	return c.get(ctx, "/manga/"+url.PathEscape(mangaID)+"/feed", q)
}

func (c *Client) Aggregate(ctx context.Context, mangaID, language string) ([]byte, error) {
	q := url.Values{}
	q.Add("translatedLanguage[]", language)
	return c.get(ctx, "/manga/"+url.PathEscape(mangaID)+"/aggregate", q)
}

func (c *Client) ChapterByNumber(ctx context.Context, mangaID, chapter, language, order string, limit int, contentRating, includes string) ([]byte, error) {
	q := url.Values{}
	q.Set("manga", mangaID)
	q.Set("chapter", chapter)
	q.Add("translatedLanguage[]", language)
	q.Set("order[readableAt]", order)
	q.Set("limit", strconv.Itoa(limit))
	q.Add("contentRating[]", contentRating)
	q.Add("includes[]", includes)
	return c.get(ctx, "/chapter", q)
}

func (c *Client) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	u := c.BaseURL + path + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("mangadex: build request: %w: %w", ErrUpstreamFetch, err)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mangadex: request %s: %w: %w", path, ErrUpstreamFetch, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("mangadex: read body %s: %w: %w", path, ErrUpstreamFetch, err)
	}

	log.Debug().
		Str("path", path).
		Int("status", resp.StatusCode).
		Int("bytes", len(body)).
		Dur("took", time.Since(start)).
		Msg("mangadex call")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("mangadex: %s: status %d: %w", path, resp.StatusCode, ErrUpstreamFetch)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("mangadex: %s: empty body: %w", path, ErrUpstreamFetch)
	}
	return body, nil
}
