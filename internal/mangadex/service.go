package mangadex

import (
	"context"
	"fmt"
	"math/big"
	"regexp"

	"github.com/phuslu/log"

	"shiori/pkg/models"
)

// Fixed request parameters.
const (
	contentRatingSafe = "safe"
	orderDesc         = "desc"

	// latestFeedLimit is how many feed entries the latest-chapter fallback scans.
	latestFeedLimit = 50
)

// Service turns raw provider documents into stable result records.
// It keeps no state between calls.
type Service struct {
	Provider Provider
}

func NewService(p Provider) *Service {
	return &Service{Provider: p}
}

func (s *Service) SearchResults(ctx context.Context, title string, limit int) ([]models.SearchResult, error) {
	body, err := s.Provider.Search(ctx, title, limit, relCoverArt, contentRatingSafe)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", title, err)
	}
	root, err := ParseDocument(body)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", title, err)
	}

	items := root.Get("data").Items()
	out := make([]models.SearchResult, 0, len(items))
	for _, item := range items {
		out = append(out, ToSearchResult(item))
	}
	return out, nil
}

// GetFeed returns chapters in the order the provider sent them (newest first).
func (s *Service) GetFeed(ctx context.Context, mangaID string, limit int, lang string) ([]models.ChapterResult, error) {
	root, err := s.feed(ctx, mangaID, lang, limit)
	if err != nil {
		return nil, err
	}

	items := root.Get("data").Items()
	out := make([]models.ChapterResult, 0, len(items))
	for _, ch := range items {
		out = append(out, ToChapterResult(ch))
	}
	return out, nil
}

// GetLatestNumberedChapter resolves the newest chapter of a manga in lang.
//
// The aggregate document names the highest numeric chapter; that chapter is
// then fetched directly. When the aggregate has no numeric key or the direct
// fetch comes back empty, the newest-first feed is scanned for the first
// entry with a chapter number, falling back to the newest entry of all.
// A nil result with a nil error means the manga has nothing available.
func (s *Service) GetLatestNumberedChapter(ctx context.Context, mangaID, lang string) (*models.ChapterResult, error) {
	body, err := s.Provider.Aggregate(ctx, mangaID, lang)
	if err != nil {
		return nil, fmt.Errorf("aggregate %s: %w", mangaID, err)
	}
	agg, err := ParseDocument(body)
	if err != nil {
		return nil, fmt.Errorf("aggregate %s: %w", mangaID, err)
	}

	if key, ok := highestChapterKey(agg); ok {
		body, err := s.Provider.ChapterByNumber(ctx, mangaID, key, lang, orderDesc, 1, contentRatingSafe, relScanlationGroup)
		if err != nil {
			return nil, fmt.Errorf("chapter %s of %s: %w", key, mangaID, err)
		}
		root, err := ParseDocument(body)
		if err != nil {
			return nil, fmt.Errorf("chapter %s of %s: %w", key, mangaID, err)
		}
		if data := root.Get("data").Items(); len(data) > 0 {
			res := ToChapterResult(data[0])
			return &res, nil
		}
		log.Debug().Str("manga_id", mangaID).Str("chapter", key).Msg("aggregate chapter not found, scanning feed")
	}

	root, err := s.feed(ctx, mangaID, lang, latestFeedLimit)
	if err != nil {
		return nil, err
	}
	data := root.Get("data").Items()
	for _, ch := range data {
		if ch.Path("attributes", "chapter").NonBlank() != nil {
			res := ToChapterResult(ch)
			return &res, nil
		}
	}
	if len(data) > 0 {
		res := ToChapterResult(data[0])
		return &res, nil
	}
	return nil, nil
}

func (s *Service) feed(ctx context.Context, mangaID, lang string, limit int) (Node, error) {
	body, err := s.Provider.Feed(ctx, mangaID, lang, limit, orderDesc, relScanlationGroup, contentRatingSafe)
	if err != nil {
		return Node{}, fmt.Errorf("feed %s: %w", mangaID, err)
	}
	root, err := ParseDocument(body)
	if err != nil {
		return Node{}, fmt.Errorf("feed %s: %w", mangaID, err)
	}
	return root, nil
}

var decimalKey = regexp.MustCompile(`^[+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?$`)

// parseChapterNumber parses an aggregate chapter key as an exact decimal.
// Keys like "Extra" or "none" are rejected.
func parseChapterNumber(key string) (*big.Rat, bool) {
	if !decimalKey.MatchString(key) {
		return nil, false
	}
	return new(big.Rat).SetString(key)
}

// highestChapterKey walks volumes.*.chapters.* in document order and returns
// the key with the greatest numeric value. Equal values keep the first key seen.
func highestChapterKey(agg Node) (string, bool) {
	var (
		bestKey string
		bestNum *big.Rat
	)
	agg.Get("volumes").Each(func(_ string, volume Node) bool {
		volume.Get("chapters").Each(func(key string, _ Node) bool {
			num, ok := parseChapterNumber(key)
			if !ok {
				return true
			}
			if bestNum == nil || num.Cmp(bestNum) > 0 {
				bestNum = num
				bestKey = key
			}
			return true
		})
		return true
	})
	return bestKey, bestNum != nil
}
