package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/devanujpatel/New-Curator-AI-Agent/backend/internal/domain"
	"github.com/devanujpatel/New-Curator-AI-Agent/backend/internal/graph"
	apperrors "github.com/devanujpatel/New-Curator-AI-Agent/backend/pkg/errors"
	"github.com/devanujpatel/New-Curator-AI-Agent/backend/pkg/logger"
)

// Service is the part of *ranking.Orchestrator the handlers call
type Service interface {
	GetRankedArticles(ctx context.Context, cfg domain.FetchConfig) ([]domain.Article, error)
	PurgeAndRefetch(ctx context.Context, cfg domain.FetchConfig) ([]domain.Article, error)
	RefreshScores(ctx context.Context) ([]domain.Article, error)
	RecordReaction(ctx context.Context, url, reaction string) (domain.Reaction, error)
	RecordNote(ctx context.Context, url, note string) error
	RelatedByEntity(ctx context.Context, id, name string) ([]graph.Neighbor, error)
	RelatedByTheme(ctx context.Context, id, name string) ([]graph.Neighbor, error)
	ArticleTopics(ctx context.Context, id string) (graph.Topics, error)
	Popular(ctx context.Context, limit int) (graph.Popularity, error)
}

// Handler serves the dashboard API
type Handler struct {
	svc      Service
	defaults domain.FetchConfig
	logger   *zap.Logger
}

// NewHandler creates a handler. defaults fills fetch parameters the request omits.
func NewHandler(svc Service, defaults domain.FetchConfig, log *zap.Logger) *Handler {
	return &Handler{svc: svc, defaults: defaults, logger: logger.OrDefault(log, "api")}
}

// Register mounts the API routes on g
func (h *Handler) Register(g *gin.RouterGroup) {
	g.GET("/articles", h.getArticles)
	g.POST("/articles/refetch", h.refetch)
	g.POST("/articles/refresh-scores", h.refreshScores)
	g.POST("/articles/reaction", h.recordReaction)
	g.POST("/articles/note", h.recordNote)
	g.GET("/articles/:id/related", h.related)
	g.GET("/articles/:id/topics", h.topics)
	g.GET("/graph/popular", h.popular)
}

type articlesResponse struct {
	Articles []domain.Article `json:"articles"`
	Count    int              `json:"count"`
	Stale    bool             `json:"stale"`
	Error    string           `json:"error,omitempty"`
}

func (h *Handler) getArticles(c *gin.Context) {
	cfg, err := h.fetchConfig(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	articles, err := h.svc.GetRankedArticles(c.Request.Context(), cfg)
	h.writeRanking(c, articles, err)
}

func (h *Handler) refetch(c *gin.Context) {
	cfg, err := h.fetchConfig(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	articles, err := h.svc.PurgeAndRefetch(c.Request.Context(), cfg)
	h.writeRanking(c, articles, err)
}

func (h *Handler) refreshScores(c *gin.Context) {
	articles, err := h.svc.RefreshScores(c.Request.Context())
	if err != nil {
		h.writeError(c, "Failed to refresh scores", err)
		return
	}
	c.JSON(http.StatusOK, articlesResponse{Articles: articles, Count: len(articles)})
}

// writeRanking serves the previous ranking as stale when a refresh fails
func (h *Handler) writeRanking(c *gin.Context, articles []domain.Article, err error) {
	if err != nil {
		if articles == nil {
			h.logger.Error("Ranking failed with nothing to fall back to", zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to rank articles"})
			return
		}
		h.logger.Warn("Serving stale ranking", zap.Error(err))
		c.JSON(http.StatusOK, articlesResponse{
			Articles: articles,
			Count:    len(articles),
			Stale:    true,
			Error:    err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, articlesResponse{Articles: articles, Count: len(articles)})
}

func (h *Handler) recordReaction(c *gin.Context) {
	var req struct {
		URL      string `json:"url" binding:"required"`
		Reaction string `json:"reaction" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reaction, err := h.svc.RecordReaction(c.Request.Context(), req.URL, req.Reaction)
	if err != nil {
		h.writeError(c, "Failed to record reaction", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": req.URL, "reaction": reaction})
}

func (h *Handler) recordNote(c *gin.Context) {
	var req struct {
		URL  string  `json:"url" binding:"required"`
		Note *string `json:"note" binding:"required"` // empty clears the note
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.svc.RecordNote(c.Request.Context(), req.URL, *req.Note); err != nil {
		h.writeError(c, "Failed to record note", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (h *Handler) related(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	var (
		neighbors []graph.Neighbor
		err       error
	)
	switch entity, theme := c.Query("entity"), c.Query("theme"); {
	case entity != "" && theme == "":
		neighbors, err = h.svc.RelatedByEntity(ctx, id, entity)
	case theme != "" && entity == "":
		neighbors, err = h.svc.RelatedByTheme(ctx, id, theme)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "exactly one of entity or theme is required"})
		return
	}
	if err != nil {
		h.writeError(c, "Failed to find related articles", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"articles": neighbors, "count": len(neighbors)})
}

func (h *Handler) topics(c *gin.Context) {
	topics, err := h.svc.ArticleTopics(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, "Failed to load article topics", err)
		return
	}
	c.JSON(http.StatusOK, topics)
}

func (h *Handler) popular(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	pop, err := h.svc.Popular(c.Request.Context(), limit)
	if err != nil {
		h.writeError(c, "Failed to load popular topics", err)
		return
	}
	c.JSON(http.StatusOK, pop)
}

func (h *Handler) writeError(c *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, apperrors.ErrArticleNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Article not found"})
	case errors.Is(err, apperrors.ErrInvalidReaction):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case apperrors.IsFatalToBatch(err):
		h.logger.Error(msg, zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": msg})
	default:
		h.logger.Error(msg, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}

// fetchConfig reads country, categories and page_size, falling back to the defaults
func (h *Handler) fetchConfig(c *gin.Context) (domain.FetchConfig, error) {
	cfg := h.defaults
	if country := strings.TrimSpace(c.Query("country")); country != "" {
		cfg.Country = country
	}
	if raw := c.Query("categories"); raw != "" {
		var cats []string
		for _, cat := range strings.Split(raw, ",") {
			if cat = strings.TrimSpace(cat); cat != "" {
				cats = append(cats, cat)
			}
		}
		if len(cats) > 0 {
			cfg.Categories = cats
		}
	}
	if raw := c.Query("page_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			return cfg, errors.New("page_size must be between 1 and 100")
		}
		cfg.PageSize = n
	}
	return cfg, nil
}
