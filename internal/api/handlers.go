package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"projectreview/internal/models"
	"projectreview/internal/service/review"
	"projectreview/internal/session"
)

const (
	errRepoURLRequired  = "Repository URL and message are required"
	errAnalyzeFirst     = "Repository must be analyzed first"
	errMessageRequired  = "Message is required"
	staticIndexFileName = "index.html"
)

type Reviewer interface {
	Analyze(ctx context.Context, repoURL, branch string) (*review.Result, error)
	FollowUp(ctx context.Context, sess *models.ReviewSession, question string) (string, error)
}

// Handler wires HTTP routes to the reviewer and the session store.
type Handler struct {
	reviewer  Reviewer
	sessions  *session.Store
	staticDir string
}

// NewHandler constructs a Handler instance. An empty staticDir disables the front-end.
func NewHandler(reviewer Reviewer, sessions *session.Store, staticDir string) *Handler {
	return &Handler{
		reviewer:  reviewer,
		sessions:  sessions,
		staticDir: staticDir,
	}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware(), h.sweepSessions())
	router.GET("/health", h.health)
	api := router.Group("/api")
	api.POST("/analyze", h.analyze)
	api.POST("/chat", h.chat)
	router.NoRoute(h.serveStatic)
}

// sweepSessions drops idle sessions before every request.
func (h *Handler) sweepSessions() gin.HandlerFunc {
	return func(c *gin.Context) {
		h.sessions.Sweep()
		c.Next()
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.Writer.Header()
		header.Set("Access-Control-Allow-Origin", "*")
		header.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		header.Set("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

type analyzeRequest struct {
	RepoURL   string `json:"repoUrl"`
	SessionID string `json:"sessionId"`
	Branch    string `json:"branch"`
}

func (h *Handler) analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.RepoURL) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": errRepoURLRequired})
		return
	}
	sessionID := strings.TrimSpace(req.SessionID)
	reanalysis := false
	if sessionID == "" {
		sessionID = uuid.NewString()
	} else if _, err := h.sessions.Get(sessionID); err == nil {
		reanalysis = true
	}

	log.Printf("launching analysis of %s (session %s)", req.RepoURL, sessionID)
	res, err := h.reviewer.Analyze(c.Request.Context(), strings.TrimSpace(req.RepoURL), strings.TrimSpace(req.Branch))
	if err != nil {
		if reanalysis {
			h.sessions.Delete(sessionID)
			log.Printf("dropped session %s after failed re-analysis", sessionID)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.sessions.Create(review.NewSession(sessionID, res))
	c.JSON(http.StatusOK, gin.H{
		"response":  res.FinalFeedback,
		"sessionId": sessionID,
	})
}

type chatRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

func (h *Handler) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.SessionID == "" || h.sessions.Touch(req.SessionID) != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errAnalyzeFirst})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": errMessageRequired})
		return
	}

	var reply string
	err := h.sessions.WithTurn(req.SessionID, func(sess *models.ReviewSession) error {
		var err error
		reply, err = h.reviewer.FollowUp(c.Request.Context(), sess, req.Message)
		return err
	})
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": errAnalyzeFirst})
			return
		}
		log.Printf("chat on session %s failed: %v", req.SessionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": reply})
}

// serveStatic serves the front-end for unknown GET paths, falling back to index.html.
func (h *Handler) serveStatic(c *gin.Context) {
	if h.staticDir == "" || c.Request.Method != http.MethodGet || strings.HasPrefix(c.Request.URL.Path, "/api/") {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	rel := path.Clean("/" + c.Request.URL.Path)
	target := filepath.Join(h.staticDir, filepath.FromSlash(rel))
	if info, err := os.Stat(target); err == nil && !info.IsDir() {
		c.File(target)
		return
	}
	index := filepath.Join(h.staticDir, staticIndexFileName)
	if _, err := os.Stat(index); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.File(index)
}
