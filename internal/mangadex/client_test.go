package mangadex

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, status int, body string) (*httptest.Server, *[]*http.Request) {
	t.Helper()
	var seen []*http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Clone(context.Background()))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func TestClient_Search(t *testing.T) {
	srv, seen := newTestServer(t, http.StatusOK, `{"data":[]}`)
	c := NewClient(srv.URL, "shiori-test", time.Second)

	body, err := c.Search(context.Background(), "one piece", 5, "cover_art", "safe")
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":[]}`, string(body))

	require.Len(t, *seen, 1)
	r := (*seen)[0]
	assert.Equal(t, "/manga", r.URL.Path)
	q := r.URL.Query()
	assert.Equal(t, "one piece", q.Get("title"))
	assert.Equal(t, "5", q.Get("limit"))
	assert.Equal(t, []string{"cover_art"}, q["includes[]"])
	assert.Equal(t, []string{"safe"}, q["contentRating[]"])
	assert.Equal(t, "shiori-test", r.Header.Get("User-Agent"))
}

func TestClient_FeedAggregateChapter(t *testing.T) {
	srv, seen := newTestServer(t, http.StatusOK, `{"result":"ok"}`)
	c := NewClient(srv.URL+"/", "", time.Second)
	ctx := context.Background()

	_, err := c.Feed(ctx, "m-1", "en", 50, "desc", "scanlation_group", "safe")
	require.NoError(t, err)
	_, err = c.Aggregate(ctx, "m-1", "en")
	require.NoError(t, err)
	_, err = c.ChapterByNumber(ctx, "m-1", "10.5", "en", "desc", 1, "safe", "scanlation_group")
	require.NoError(t, err)

	require.Len(t, *seen, 3)

	feed := (*seen)[0]
	assert.Equal(t, "/manga/m-1/feed", feed.URL.Path)
	assert.Equal(t, url.Values{
		"translatedLanguage[]": {"en"},
		"limit":                {"50"},
		"order[readableAt]":    {"desc"},
		"includes[]":           {"scanlation_group"},
		"contentRating[]":      {"safe"},
	}, feed.URL.Query())

	agg := (*seen)[1]
	assert.Equal(t, "/manga/m-1/aggregate", agg.URL.Path)
	assert.Equal(t, "en", agg.URL.Query().Get("translatedLanguage[]"))

	ch := (*seen)[2]
	assert.Equal(t, "/chapter", ch.URL.Path)
	assert.Equal(t, "m-1", ch.URL.Query().Get("manga"))
	assert.Equal(t, "10.5", ch.URL.Query().Get("chapter"))
	assert.Equal(t, "1", ch.URL.Query().Get("limit"))
}

func TestClient_NonSuccessStatus(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusServiceUnavailable, `{"result":"error"}`)
	c := NewClient(srv.URL, "", time.Second)

	_, err := c.Aggregate(context.Background(), "m", "en")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstreamFetch)
	assert.Contains(t, err.Error(), "503")
}

func TestClient_EmptyBody(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, "")
	c := NewClient(srv.URL, "", time.Second)

	_, err := c.Aggregate(context.Background(), "m", "en")
	assert.ErrorIs(t, err, ErrUpstreamFetch)
}

func TestClient_NetworkError(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, "{}")
	base := srv.URL
	srv.Close()

	c := NewClient(base, "", time.Second)
	_, err := c.Search(context.Background(), "x", 1, "cover_art", "safe")
	assert.ErrorIs(t, err, ErrUpstreamFetch)
}

func TestClient_CanceledContext(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, "{}")
	c := NewClient(srv.URL, "", time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Aggregate(ctx, "m", "en")
	assert.ErrorIs(t, err, ErrUpstreamFetch)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient("", "", 0)
	assert.Equal(t, DefaultBaseURL, c.BaseURL)
	assert.Equal(t, 12*time.Second, c.HTTP.Timeout)
}
