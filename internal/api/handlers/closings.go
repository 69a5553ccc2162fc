package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/juandiegoalamohe-alt/localpix/internal/closing"
	"github.com/juandiegoalamohe-alt/localpix/internal/storage"
	"github.com/juandiegoalamohe-alt/localpix/pkg/dto"
)

type ClosingHandler struct {
	db          *storage.PostgresStore
	coordinator *closing.Coordinator
}

func NewClosingHandler(db *storage.PostgresStore, coordinator *closing.Coordinator) *ClosingHandler {
	return &ClosingHandler{db: db, coordinator: coordinator}
}

// CloseDay records the closing and destroys every face descriptor in the
// same transaction. A failure aborts the whole closing.
func (h *ClosingHandler) CloseDay(c *gin.Context) {
	var req dto.CloseDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	writer := closing.NewReportWriter(req.ClosedBy, req.Notes)
	purged, err := h.coordinator.PurgeOnClosing(c.Request.Context(), writer)
	if err != nil {
		if errors.Is(err, closing.ErrPurgeInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, dto.CloseDayResponse{
		ID:                writer.Report.ID,
		Timestamp:         writer.Report.Timestamp.Format(time.RFC3339),
		PurgedDescriptors: purged,
	})
}

func (h *ClosingHandler) Last(c *gin.Context) {
	last, err := h.db.LastClosing(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if last == nil {
		c.JSON(http.StatusOK, gin.H{"last_closing": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"last_closing": last.Timestamp.Format(time.RFC3339)})
}

func (h *ClosingHandler) List(c *gin.Context) {
	reports, err := h.db.ListClosings(c.Request.Context(), 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.ClosingResponse, 0, len(reports))
	for _, r := range reports {
		resp = append(resp, dto.ClosingResponse{
			ID:        r.ID,
			Timestamp: r.Timestamp.Format(time.RFC3339),
			ClosedBy:  r.ClosedBy,
			Notes:     r.Notes,
		})
	}
	c.JSON(http.StatusOK, gin.H{"closings": resp, "total": len(resp)})
}
