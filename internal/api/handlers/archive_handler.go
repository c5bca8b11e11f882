package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/stocklens/internal/domain"
	"github.com/andresuchdata/stocklens/internal/service"
)

type ArchiveHandler struct {
	service *service.InventoryService
}

func NewArchiveHandler(svc *service.InventoryService) *ArchiveHandler {
	return &ArchiveHandler{service: svc}
}

func (h *ArchiveHandler) ListUploads(c *gin.Context) {
	uploads, err := h.service.ArchivedUploads(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"uploads": uploads, "count": len(uploads)})
}

// Restore re-ingests the archived upload named by ?key=.
func (h *ArchiveHandler) Restore(c *gin.Context) {
	key := strings.TrimSpace(c.Query("key"))
	if key == "" {
		respondError(c, domain.NewError(domain.KindMalformedInput, "the key query parameter is required"))
		return
	}

	result, err := h.service.RestoreUpload(c.Request.Context(), key)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "archived upload restored",
		"dataset": result,
	})
}
