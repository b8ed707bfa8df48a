package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/phuslu/log"
)

type Handler struct {
	Admin  Admin
	Tokens TokenService
}

func NewHandler(admin Admin, tokens TokenService) *Handler {
	return &Handler{Admin: admin, Tokens: tokens}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/login", h.login)
	rg.GET("/me", AdminMiddleware(h.Tokens), h.me)
}

type loginReq struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password required"})
		return
	}

	if err := h.Admin.Verify(strings.TrimSpace(req.Username), req.Password); err != nil {
		// don't reveal which part failed
		log.Warn().Str("username", req.Username).Str("ip", c.ClientIP()).Msg("admin login rejected")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, exp, err := h.Tokens.Sign(h.Admin.Username)
	if err != nil {
		log.Error().Err(err).Msg("sign admin token failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":     token,
		"expiresAt": exp.UTC().Format(time.RFC3339),
	})
}

func (h *Handler) me(c *gin.Context) {
	claims := MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"username": claims.Username, "role": claims.Role})
}
