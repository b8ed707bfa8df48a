package manga

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/phuslu/log"

	"shiori/pkg/models"
)

// Publisher receives catalog change events. *events.Hub implements it.
type Publisher interface {
	BroadcastJSON(v any)
}

// Event is published after every successful catalog write.
type Event struct {
	Type       string    `json:"type"` // "manga.created", "manga.updated" or "manga.deleted"
	ID         int64     `json:"id"`
	MangadexID *string   `json:"mangadexId,omitempty"`
	Title      string    `json:"title,omitempty"`
	At         time.Time `json:"at"`
}

type Handler struct {
	Repo   *Repo
	Events Publisher
}

func NewHandler(repo *Repo, events Publisher) *Handler {
	return &Handler{Repo: repo, Events: events}
}

// RegisterRoutes mounts the catalog routes. Write routes run behind the
// given middleware (admin auth in the api server).
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, writeGuard ...gin.HandlerFunc) {
	rg.GET("", h.list)        // GET /api/manga
	rg.GET("/:id", h.getByID) // GET /api/manga/:id

	w := rg.Group("", writeGuard...)
	w.POST("", h.create)
	w.PUT("/:id", h.update)
	w.DELETE("/:id", h.delete)
}

type mangaReq struct {
	Title         string             `json:"title" binding:"required,max=500"`
	MangadexID    *string            `json:"mangadexId"`
	Year          *int               `json:"year" binding:"omitempty,min=1900,max=2100"`
	CoverImageURL *string            `json:"coverImageUrl"`
	Status        models.MangaStatus `json:"status" binding:"omitempty,oneof=ONGOING COMPLETED HIATUS CANCELLED"`
}

// mangaRefs is checked after blanks have become nil, so "" means "unset"
// rather than an invalid id or url.
type mangaRefs struct {
	MangadexID    *string `binding:"omitempty,uuid"`
	CoverImageURL *string `binding:"omitempty,url"`
}

var errTitleRequired = errors.New("title required")

// rowValidator runs the binding rules outside gin's request binding.
var rowValidator = func() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	return v
}()

func (r mangaReq) toModel() models.Manga {
	return models.Manga{
		Title:         strings.TrimSpace(r.Title),
		MangadexID:    trimmedOrNil(r.MangadexID),
		Year:          r.Year,
		CoverImageURL: trimmedOrNil(r.CoverImageURL),
		Status:        r.Status,
	}
}

// normalize trims the request into a model and validates the optional
// references on their trimmed values.
func (r mangaReq) normalize() (models.Manga, error) {
	m := r.toModel()
	if m.Title == "" {
		return m, errTitleRequired
	}
	if err := rowValidator.Struct(mangaRefs{MangadexID: m.MangadexID, CoverImageURL: m.CoverImageURL}); err != nil {
		return m, err
	}
	return m, nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func (h *Handler) list(c *gin.Context) {
	if mdID := strings.TrimSpace(c.Query("mangadexId")); mdID != "" {
		h.getByMangadexID(c, mdID)
		return
	}

	q := ListQuery{
		Q:      c.Query("q"),
		Status: c.Query("status"),
		Limit:  parseInt(c.Query("limit"), 20),
		Offset: parseInt(c.Query("offset"), 0),
	}
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 20
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	total, err := h.Repo.Count(c.Request.Context(), q)
	if err != nil {
		log.Error().Err(err).Msg("manga count failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count failed"})
		return
	}

	items, err := h.Repo.List(c.Request.Context(), q)
	if err != nil {
		log.Error().Err(err).Msg("manga list failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":  total,
		"limit":  q.Limit,
		"offset": q.Offset,
		"items":  items,
	})
}

func (h *Handler) getByMangadexID(c *gin.Context, mdID string) {
	m, err := h.Repo.GetByMangadexID(c.Request.Context(), mdID)
	if err != nil {
		log.Error().Err(err).Str("mangadex_id", mdID).Msg("manga lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if m == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *Handler) getByID(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	m, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		log.Error().Err(err).Int64("id", id).Msg("manga get failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if m == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *Handler) create(c *gin.Context) {
	var req mangaReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}
	m, err := req.normalize()
	if err != nil {
		badRequest(c, err)
		return
	}

	saved, err := h.Repo.Create(c.Request.Context(), m)
	if err != nil {
		h.writeError(c, err, "create failed")
		return
	}

	h.publish("manga.created", saved)
	c.Header("Location", "/api/manga/"+strconv.FormatInt(saved.ID, 10))
	c.JSON(http.StatusCreated, saved)
}

func (h *Handler) update(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req mangaReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}
	m, err := req.normalize()
	if err != nil {
		badRequest(c, err)
		return
	}

	updated, err := h.Repo.Update(c.Request.Context(), id, m)
	if err != nil {
		h.writeError(c, err, "update failed")
		return
	}

	h.publish("manga.updated", updated)
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) delete(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.Repo.Delete(c.Request.Context(), id); err != nil {
		h.writeError(c, err, "delete failed")
		return
	}

	h.publish("manga.deleted", &models.Manga{ID: id})
	c.Status(http.StatusNoContent)
}

func badRequest(c *gin.Context, err error) {
	if errors.Is(err, errTitleRequired) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title required"})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
}

func (h *Handler) writeError(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, ErrDuplicateMangadexID):
		c.JSON(http.StatusConflict, gin.H{"error": "mangadexId already exists"})
	default:
		log.Error().Err(err).Msg(msg)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}

func (h *Handler) publish(kind string, m *models.Manga) {
	if h.Events == nil {
		return
	}
	h.Events.BroadcastJSON(Event{
		Type:       kind,
		ID:         m.ID,
		MangadexID: m.MangadexID,
		Title:      m.Title,
		At:         time.Now().UTC(),
	})
}

func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
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
