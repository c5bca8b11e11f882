package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/stocklens/internal/domain"
	"github.com/andresuchdata/stocklens/internal/service"
)

// multipartOverhead leaves room for boundaries and part headers on top of
// the file size limit.
const multipartOverhead = 64 << 10

type InventoryHandler struct {
	service        *service.InventoryService
	maxUploadBytes int64
}

func NewInventoryHandler(svc *service.InventoryService, maxUploadBytes int64) *InventoryHandler {
	return &InventoryHandler{service: svc, maxUploadBytes: maxUploadBytes}
}

// Upload accepts a multipart "file" field and replaces the dataset.
func (h *InventoryHandler) Upload(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+multipartOverhead)
	}

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, domain.NewError(domain.KindSizeLimitExceeded,
				"upload exceeds %d bytes", h.maxUploadBytes))
			return
		}
		respondError(c, domain.NewError(domain.KindMalformedInput, "a spreadsheet must be sent in the \"file\" form field"))
		return
	}

	file, err := header.Open()
	if err != nil {
		respondError(c, fmt.Errorf("failed to open upload: %w", err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(c, fmt.Errorf("failed to read upload: %w", err))
		return
	}

	result, err := h.service.Upload(c.Request.Context(), header.Filename, data)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("loaded %d brands from %s", result.BrandCount, result.SourceName),
		"dataset": result,
	})
}

// GetAnalytics accepts optional overstock_multiplier and top query params.
func (h *InventoryHandler) GetAnalytics(c *gin.Context) {
	var multiplier *float64
	if raw := strings.TrimSpace(c.Query("overstock_multiplier")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			respondError(c, domain.NewError(domain.KindInvalidConfiguration,
				"overstock_multiplier %q is not a number", raw))
			return
		}
		multiplier = &v
	}

	top := 0
	if raw := strings.TrimSpace(c.Query("top")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			respondError(c, domain.NewError(domain.KindInvalidConfiguration,
				"top must be a positive integer, got %q", raw))
			return
		}
		top = v
	}

	result, err := h.service.Analytics(c.Request.Context(), multiplier, top)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *InventoryHandler) GetDemand(c *gin.Context) {
	plan, err := h.service.Demand(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// ExportDemand streams the demand report as an xlsx attachment.
func (h *InventoryHandler) ExportDemand(c *gin.Context) {
	out, err := h.service.Export(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.Name))
	c.Data(http.StatusOK, out.ContentType, out.Data)
}

func (h *InventoryHandler) GetBrands(c *gin.Context) {
	brands, err := h.service.Brands(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"brands": brands, "count": len(brands)})
}

func (h *InventoryHandler) GetDetails(c *gin.Context) {
	details, err := h.service.Details(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"details": details, "count": len(details)})
}

func (h *InventoryHandler) GetCharts(c *gin.Context) {
	charts, err := h.service.Charts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, charts)
}
