package mangadex

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/phuslu/log"

	"shiori/pkg/models"
)

// Lookup is the part of Service the HTTP layer needs.
type Lookup interface {
	SearchResults(ctx context.Context, title string, limit int) ([]models.SearchResult, error)
	GetFeed(ctx context.Context, mangaID string, limit int, lang string) ([]models.ChapterResult, error)
	GetLatestNumberedChapter(ctx context.Context, mangaID, lang string) (*models.ChapterResult, error)
}

type Handler struct {
	Service Lookup
}

func NewHandler(svc Lookup) *Handler {
	return &Handler{Service: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/search", h.search)           // GET /api/md/search?title=
	rg.GET("/manga/:id/feed", h.feed)     // GET /api/md/manga/:id/feed
	rg.GET("/manga/:id/latest", h.latest) // GET /api/md/manga/:id/latest
}

func (h *Handler) search(c *gin.Context) {
	title := strings.TrimSpace(c.Query("title"))
	if title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title required"})
		return
	}
	limit := clampLimit(parseInt(c.Query("limit"), 5), 5)

	items, err := h.Service.SearchResults(c.Request.Context(), title, limit)
	if err != nil {
		log.Error().Err(err).Str("title", title).Msg("mangadex search failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "search failed"})
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) feed(c *gin.Context) {
	id, ok := mangaIDParam(c)
	if !ok {
		return
	}
	limit := clampLimit(parseInt(c.Query("limit"), 10), 10)
	lang := c.DefaultQuery("lang", "en")

	items, err := h.Service.GetFeed(c.Request.Context(), id, limit, lang)
	if err != nil {
		log.Error().Err(err).Str("manga_id", id).Str("lang", lang).Msg("mangadex feed failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "feed failed"})
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) latest(c *gin.Context) {
	id, ok := mangaIDParam(c)
	if !ok {
		return
	}
	lang := c.DefaultQuery("lang", "en")

	ch, err := h.Service.GetLatestNumberedChapter(c.Request.Context(), id, lang)
	if err != nil {
		log.Error().Err(err).Str("manga_id", id).Str("lang", lang).Msg("latest chapter lookup failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "latest chapter lookup failed"})
		return
	}
	// nil renders as a JSON null body
	c.JSON(http.StatusOK, ch)
}

func mangaIDParam(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid manga id"})
		return "", false
	}
	return id, true
}

// maxPageLimit is the largest page MangaDex serves in one request.
const maxPageLimit = 100

// clampLimit caps limit at one provider page. Non-positive limits fall
// back to def.
func clampLimit(limit, def int) int {
	switch {
	case limit <= 0:
		return def
	case limit > maxPageLimit:
		return maxPageLimit
	}
	return limit
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
