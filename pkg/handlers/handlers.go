package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/arnavshah/roster-engine-go/internal/worker"
	"github.com/arnavshah/roster-engine-go/pkg/auth"
	"github.com/arnavshah/roster-engine-go/pkg/database"
	"github.com/arnavshah/roster-engine-go/pkg/journal"
	"github.com/arnavshah/roster-engine-go/pkg/store"
)

// Handler contains dependencies for the route handlers
type Handler struct {
	DB         *gorm.DB
	Store      *store.Store
	Journal    *journal.Journal
	Dispatcher worker.Dispatcher
	Log        *zap.Logger
}

// AuthMiddleware verifies the JWT token for admin routes
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("Authorization")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		// Strip "Bearer " if present
		if len(token) > 7 && token[:7] == "Bearer " {
			token = token[7:]
		}

		claims, err := auth.VerifyToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		c.Set("username", claims.Username)
		c.Next()
	}
}

// APIKeyMiddleware verifies the API key for engine routes using HMAC
func (h *Handler) APIKeyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("Authorization")
		if key == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "API Key required"})
			c.Abort()
			return
		}

		if len(key) > 7 && key[:7] == "Bearer " {
			key = key[7:]
		}

		userID, err := auth.VerifyHMACKey(key)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API Key signature"})
			c.Abort()
			return
		}

		// Fetch or create API key record to track usage
		var apiKey database.APIKey
		h.DB.Where(database.APIKey{Key: key}).FirstOrCreate(&apiKey, database.APIKey{
			Key:       key,
			Name:      userID,
			RateLimit: 10000,
		})

		c.Set("apiKey", &apiKey)
		c.Set("userID", userID)
		c.Next()
	}
}

// actor returns the identity performing the request.
func actor(c *gin.Context) string {
	if id, ok := c.Get("userID"); ok {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return "unknown"
}

// sessionID scopes undo/redo stacks; callers may pin their own via header.
func sessionID(c *gin.Context) string {
	if sid := c.GetHeader("X-Session-ID"); sid != "" {
		return sid
	}
	return actor(c)
}

// fail maps store and journal errors onto HTTP statuses.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrStaleVersion):
		status = http.StatusConflict
	case errors.Is(err, store.ErrDoubleBooked):
		status = http.StatusConflict
	case errors.Is(err, store.ErrConflictsUnresolved),
		errors.Is(err, store.ErrWarningsUnacked),
		errors.Is(err, store.ErrFrozen):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrValidation),
		errors.Is(err, store.ErrPinnedForbidden),
		errors.Is(err, store.ErrTemplateInUse),
		errors.Is(err, journal.ErrNothingToUndo),
		errors.Is(err, journal.ErrNothingToRedo):
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// RecordUsage records API usage in the database using an efficient upsert
func (h *Handler) RecordUsage(c *gin.Context, runsStarted, slotsGenerated int) {
	apiKeyRaw, exists := c.Get("apiKey")
	if !exists {
		return
	}
	apiKey := apiKeyRaw.(*database.APIKey)

	today := time.Now().Format("2006-01-02")

	// Use OnConflict for a single-query upsert (supported by both Postgres and SQLite)
	h.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key_id"}, {Name: "date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"request_count":   gorm.Expr("request_count + ?", 1),
			"runs_started":    gorm.Expr("runs_started + ?", runsStarted),
			"slots_generated": gorm.Expr("slots_generated + ?", slotsGenerated),
		}),
	}).Create(&database.APIUsage{
		KeyID:          apiKey.ID,
		Date:           today,
		RequestCount:   1,
		RunsStarted:    runsStarted,
		SlotsGenerated: slotsGenerated,
	})
}
