package mangadex

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	op   string
	args []any
}

// fakeProvider replays canned bodies and records every call it receives.
type fakeProvider struct {
	search, feed, aggregate, chapter string
	err                              error
	calls                            []call
}

func (f *fakeProvider) reply(body string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte(body), nil
}

func (f *fakeProvider) Search(_ context.Context, title string, limit int, includes, contentRating string) ([]byte, error) {
	f.calls = append(f.calls, call{"search", []any{title, limit, includes, contentRating}})
	return f.reply(f.search)
}

func (f *fakeProvider) Feed(_ context.Context, mangaID, language string, limit int, order, includes, contentRating string) ([]byte, error) {
	f.calls = append(f.calls, call{"feed", []any{mangaID, language, limit, order, includes, contentRating}})
	return f.reply(f.feed)
}

func (f *fakeProvider) Aggregate(_ context.Context, mangaID, language string) ([]byte, error) {
	f.calls = append(f.calls, call{"aggregate", []any{mangaID, language}})
	return f.reply(f.aggregate)
}

func (f *fakeProvider) ChapterByNumber(_ context.Context, mangaID, chapter, language, order string, limit int, contentRating, includes string) ([]byte, error) {
	f.calls = append(f.calls, call{"chapter", []any{mangaID, chapter, language, order, limit, contentRating, includes}})
	return f.reply(f.chapter)
}

func (f *fakeProvider) ops() []string {
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.op
	}
	return out
}

func aggregateOf(keys ...[]string) string {
	s := `{"result":"ok","volumes":{`
	for i, vol := range keys {
		if i > 0 {
			s += ","
		}
		s += fmt.Sprintf(`"v%d":{"volume":"%d","chapters":{`, i, i)
		for j, k := range vol {
			if j > 0 {
				s += ","
			}
			s += fmt.Sprintf(`%q:{"chapter":%q,"id":"id-%s"}`, k, k, k)
		}
		s += "}}"
	}
	return s + "}}"
}

func TestHighestChapterKey(t *testing.T) {
	tests := []struct {
		name  string
		keys  [][]string
		want  string
		found bool
	}{
		{"decimal beats integer", [][]string{{"10", "10.5", "Extra", "9"}}, "10.5", true},
		{"across volumes", [][]string{{"1", "2"}, {"3"}}, "3", true},
		{"ties keep first seen", [][]string{{"5"}, {"5.0"}}, "5", true},
		{"no numeric keys", [][]string{{"Extra", "Special", "none"}}, "", false},
		{"empty", nil, "", false},
		{"exponent and sign", [][]string{{"-1", "2e1", "19.99"}}, "2e1", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, ok := highestChapterKey(attrs(t, aggregateOf(tt.keys...)))
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, key)
		})
	}
}

func TestHighestChapterKey_DuplicateKeysFirstWins(t *testing.T) {
	// the same key "5" in two volumes: the first volume's key is kept
	agg := attrs(t, `{"volumes":{"1":{"chapters":{"5":{"id":"a"}}},"2":{"chapters":{"5":{"id":"b"}}}}}`)
	key, ok := highestChapterKey(agg)
	require.True(t, ok)
	assert.Equal(t, "5", key)
}

func TestHighestChapterKey_EmptyVolumesArray(t *testing.T) {
	_, ok := highestChapterKey(attrs(t, `{"result":"ok","volumes":[]}`))
	assert.False(t, ok)
}

func TestParseChapterNumber(t *testing.T) {
	for _, k := range []string{"1", "10.5", "007", ".5", "5.", "+3", "1e2"} {
		_, ok := parseChapterNumber(k)
		assert.True(t, ok, k)
	}
	for _, k := range []string{"", "Extra", "1/2", "0x10", "1_000", "Inf", "NaN", "1.2.3", " 4"} {
		_, ok := parseChapterNumber(k)
		assert.False(t, ok, k)
	}
}

func TestGetLatestNumberedChapter_TargetedFetch(t *testing.T) {
	p := &fakeProvider{
		aggregate: `{"volumes":{"1":{"chapters":{"1":"","2":""}},"2":{"chapters":{"3":""}}}}`,
		chapter:   `{"data":[{"id":"abc","attributes":{"chapter":"3","readableAt":"2024-01-01T00:00:00Z"}}]}`,
	}
	svc := NewService(p)

	got, err := svc.GetLatestNumberedChapter(context.Background(), "m", "en")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "abc", got.ChapterID)
	assert.Equal(t, "3", *got.Chapter)
	assert.Equal(t, "2024-01-01T00:00:00Z", *got.ReadableAt)
	assert.Nil(t, got.Title)
	assert.Nil(t, got.Volume)
	assert.Nil(t, got.GroupName)

	assert.Equal(t, []string{"aggregate", "chapter"}, p.ops())
	assert.Equal(t, []any{"m", "3", "en", "desc", 1, "safe", "scanlation_group"}, p.calls[1].args)
}

func TestGetLatestNumberedChapter_NoNumericKeySkipsTargetedFetch(t *testing.T) {
	p := &fakeProvider{
		aggregate: aggregateOf([]string{"Extra"}),
		feed: `{"data":[
			{"id":"x","attributes":{"chapter":null}},
			{"id":"y","attributes":{"chapter":"41"}},
			{"id":"z","attributes":{"chapter":"40"}}
		]}`,
	}
	got, err := NewService(p).GetLatestNumberedChapter(context.Background(), "m", "fr")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "y", got.ChapterID)

	assert.Equal(t, []string{"aggregate", "feed"}, p.ops())
	assert.Equal(t, []any{"m", "fr", 50, "desc", "scanlation_group", "safe"}, p.calls[1].args)
}

func TestGetLatestNumberedChapter_EmptyTargetedFetchFallsBackToFeed(t *testing.T) {
	p := &fakeProvider{
		aggregate: aggregateOf([]string{"7"}),
		chapter:   `{"result":"ok","data":[]}`,
		feed:      `{"data":[{"id":"f1","attributes":{"chapter":"7"}}]}`,
	}
	got, err := NewService(p).GetLatestNumberedChapter(context.Background(), "m", "en")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "f1", got.ChapterID)
	assert.Equal(t, []string{"aggregate", "chapter", "feed"}, p.ops())
}

func TestGetLatestNumberedChapter_FeedWithoutNumbersReturnsNewest(t *testing.T) {
	p := &fakeProvider{
		aggregate: `{"volumes":{}}`,
		feed:      `{"data":[{"id":"oneshot","attributes":{"chapter":"  ","title":"Oneshot"}},{"id":"older","attributes":{}}]}`,
	}
	got, err := NewService(p).GetLatestNumberedChapter(context.Background(), "m", "en")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "oneshot", got.ChapterID)
	assert.Nil(t, got.Chapter)
	assert.Equal(t, "Oneshot", *got.Title)
}

func TestGetLatestNumberedChapter_NothingAvailable(t *testing.T) {
	p := &fakeProvider{aggregate: `{"volumes":{}}`, feed: `{"data":[]}`}
	got, err := NewService(p).GetLatestNumberedChapter(context.Background(), "m", "en")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetLatestNumberedChapter_UpstreamError(t *testing.T) {
	p := &fakeProvider{err: fmt.Errorf("boom: %w", ErrUpstreamFetch)}
	got, err := NewService(p).GetLatestNumberedChapter(context.Background(), "m", "en")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUpstreamFetch))
	assert.Nil(t, got)
	assert.Equal(t, []string{"aggregate"}, p.ops())
}

func TestGetLatestNumberedChapter_MalformedAggregate(t *testing.T) {
	p := &fakeProvider{aggregate: `<html>`}
	_, err := NewService(p).GetLatestNumberedChapter(context.Background(), "m", "en")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestSearchResults(t *testing.T) {
	p := &fakeProvider{search: `{"data":[
		{"id":"a","attributes":{"title":{"en":"A"},"year":2001},"relationships":[{"type":"cover_art","attributes":{"fileName":"a.png"}}]},
		{"id":"b","attributes":{"title":{"en":"","ja":"名前"}}}
	]}`}

	got, err := NewService(p).SearchResults(context.Background(), "name", 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "A", *got[0].Title)
	assert.Equal(t, "https://uploads.mangadex.org/covers/a/a.png", *got[0].CoverURL)
	assert.Equal(t, "名前", *got[1].Title)
	assert.Nil(t, got[1].Year)

	assert.Equal(t, []any{"name", 5, "cover_art", "safe"}, p.calls[0].args)
}

func TestSearchResults_DataNotArray(t *testing.T) {
	p := &fakeProvider{search: `{"data":{"id":"a"}}`}
	got, err := NewService(p).SearchResults(context.Background(), "x", 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGetFeed_PreservesOrder(t *testing.T) {
	p := &fakeProvider{feed: `{"data":[
		{"id":"3","attributes":{"chapter":"3","volume":"1","title":"Three"},"relationships":[{"type":"scanlation_group","attributes":{"name":"G"}}]},
		{"id":"1","attributes":{"chapter":"1"}},
		{"id":"2","attributes":{"chapter":"2"}}
	]}`}

	got, err := NewService(p).GetFeed(context.Background(), "m", 10, "en")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "3", got[0].ChapterID)
	assert.Equal(t, "1", got[1].ChapterID)
	assert.Equal(t, "2", got[2].ChapterID)
	assert.Equal(t, "Three", *got[0].Title)
	assert.Equal(t, "1", *got[0].Volume)
	assert.Equal(t, "G", *got[0].GroupName)

	assert.Equal(t, []any{"m", "en", 10, "desc", "scanlation_group", "safe"}, p.calls[0].args)
}
