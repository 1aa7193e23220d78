package handlers

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/emojiforge/emojiforge/backend/go-services/internal/gallery"
	"github.com/emojiforge/emojiforge/backend/go-services/internal/generator"
	"github.com/emojiforge/emojiforge/backend/go-services/internal/identity"
	"github.com/emojiforge/emojiforge/backend/go-services/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PromptHeader carries the prompt of an uploaded image.
const PromptHeader = "X-Emoji-Prompt"

type GenerateRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

type UploadRequest struct {
	DataURL  string `json:"dataUrl" binding:"required"`
	FileName string `json:"fileName"`
	Prompt   string `json:"prompt"`
}

type LikeRequest struct {
	Like *bool `json:"like"`
}

// EmojiHandler serves gallery routes. Routes must be mounted behind
// middleware.ProvisionProfile.
type EmojiHandler struct {
	gallery *gallery.Service
}

func NewEmojiHandler(g *gallery.Service) *EmojiHandler {
	return &EmojiHandler{gallery: g}
}

// Register mounts the routes; generateMW runs only in front of generation.
func (h *EmojiHandler) Register(rg *gin.RouterGroup, generateMW ...gin.HandlerFunc) {
	e := rg.Group("/emojis")
	e.POST("/generate", append(generateMW, h.Generate)...)
	e.POST("/upload", h.Upload)
	e.GET("", h.List)
	e.POST("/:id/like", h.Like)
	rg.GET("/storage/signed-url", h.SignedURL)
}

func (h *EmojiHandler) Generate(c *gin.Context) {
	p, ok := middleware.Profile(c)
	if !ok {
		respondError(c, "profile", identity.ErrUnauthenticated)
		return
	}
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prompt is required"})
		return
	}
	e, err := h.gallery.Generate(c.Request.Context(), p, req.Prompt)
	if err != nil {
		respondError(c, "generate", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"emoji": e})
}

// Upload accepts either a JSON body with a data URL or a multipart form with
// a "file" part.
func (h *EmojiHandler) Upload(c *gin.Context) {
	p, ok := middleware.Profile(c)
	if !ok {
		respondError(c, "profile", identity.ErrUnauthenticated)
		return
	}
	prompt := c.GetHeader(PromptHeader)

	var img generator.Image
	ct := c.ContentType()
	switch {
	case ct == "application/json":
		var req UploadRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "dataUrl is required"})
			return
		}
		decoded, err := generator.DecodeDataURL(req.DataURL)
		if err != nil {
			respondError(c, "upload", err)
			return
		}
		img = decoded
		if prompt == "" {
			prompt = req.Prompt
		}
	case strings.HasPrefix(ct, "multipart/"):
		fh, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
			return
		}
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form data"})
			return
		}
		defer f.Close()
		b, err := io.ReadAll(io.LimitReader(f, gallery.MaxUploadBytes+1))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form data"})
			return
		}
		mime := fh.Header.Get("Content-Type")
		if mime == "" || mime == "application/octet-stream" {
			mime = http.DetectContentType(b)
		}
		img = generator.Image{Bytes: b, MimeType: mime}
		if prompt == "" {
			prompt = c.PostForm("prompt")
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported content type"})
		return
	}

	e, err := h.gallery.Upload(c.Request.Context(), p, prompt, img)
	if err != nil {
		respondError(c, "upload", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "path": e.ObjectKey, "publicUrl": e.ImageURL, "emoji": e})
}

// List supports ?sort=newest|oldest, ?liked=true, ?mine=true and ?limit=N.
func (h *EmojiHandler) List(c *gin.Context) {
	p, ok := middleware.Profile(c)
	if !ok {
		respondError(c, "profile", identity.ErrUnauthenticated)
		return
	}
	q := gallery.ListQuery{
		Viewer:    p.UserID,
		Sort:      gallery.Sort(c.Query("sort")),
		LikedOnly: c.Query("liked") == "true",
	}
	if c.Query("mine") == "true" {
		id := p.UserID
		q.CreatorID = &id
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		q.Limit = n
	}
	items, err := h.gallery.List(c.Request.Context(), q)
	if err != nil {
		respondError(c, "list emojis", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"emojis": items})
}

// Like sets the caller's like; an empty body means like=true.
func (h *EmojiHandler) Like(c *gin.Context) {
	p, ok := middleware.Profile(c)
	if !ok {
		respondError(c, "profile", identity.ErrUnauthenticated)
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid emoji id"})
		return
	}
	var req LikeRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return
		}
	}
	like := req.Like == nil || *req.Like
	e, err := h.gallery.Like(c.Request.Context(), p.UserID, id, like)
	if err != nil {
		respondError(c, "like emoji", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": e})
}

func (h *EmojiHandler) SignedURL(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path parameter is required"})
		return
	}
	u, exp, err := h.gallery.SignedURL(c.Request.Context(), path)
	if err != nil {
		respondError(c, "signed url", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"signedUrl": u, "expiresAt": exp})
}
