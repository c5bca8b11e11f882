package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/stocklens/internal/service"
)

type DriveHandler struct {
	service *service.InventoryService
}

func NewDriveHandler(svc *service.InventoryService) *DriveHandler {
	return &DriveHandler{service: svc}
}

// ListFiles lists importable spreadsheets; ?path=a/b selects a folder by path.
func (h *DriveHandler) ListFiles(c *gin.Context) {
	files, err := h.service.DriveFiles(c.Request.Context(), strings.TrimSpace(c.Query("path")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": files, "count": len(files)})
}

// Import loads ?file_id=..., or the newest spreadsheet of the configured
// folder when no id is given.
func (h *DriveHandler) Import(c *gin.Context) {
	result, err := h.service.ImportFromDrive(c.Request.Context(), strings.TrimSpace(c.Query("file_id")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "drive file imported",
		"dataset": result,
	})
}
