package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/stocklens/internal/domain"
	"github.com/andresuchdata/stocklens/internal/drive"
)

// StatusFor maps an error to its HTTP status.
func StatusFor(err error) int {
	if errors.Is(err, drive.ErrFolderNotFound) {
		return http.StatusNotFound
	}
	de, ok := domain.AsError(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch de.Kind {
	case domain.KindMalformedInput, domain.KindInsufficientData,
		domain.KindEmptyDataset, domain.KindInvalidConfiguration:
		return http.StatusBadRequest
	case domain.KindSizeLimitExceeded:
		return http.StatusRequestEntityTooLarge
	case domain.KindNoDataset:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {"error": kind, "message": ..., "rejections": [...]}.
// Unclassified errors are logged and reported without their detail.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	status := StatusFor(err)

	if de, ok := domain.AsError(err); ok {
		rejections := de.Rejections
		if rejections == nil {
			rejections = []domain.Rejection{}
		}
		c.JSON(status, gin.H{
			"error":      string(de.Kind),
			"message":    de.Message,
			"rejections": rejections,
		})
		return
	}

	if status == http.StatusNotFound {
		c.JSON(status, gin.H{"error": "NotFound", "message": err.Error(), "rejections": []domain.Rejection{}})
		return
	}

	log.Error().Stack().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	c.JSON(status, gin.H{
		"error":      "InternalError",
		"message":    "internal server error",
		"rejections": []domain.Rejection{},
	})
}
