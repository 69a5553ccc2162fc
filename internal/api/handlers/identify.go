package handlers

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/juandiegoalamohe-alt/localpix/internal/search"
	"github.com/juandiegoalamohe-alt/localpix/internal/vision"
	"github.com/juandiegoalamohe-alt/localpix/pkg/dto"
)

type IdentifyHandler struct {
	engine *search.Engine
}

func NewIdentifyHandler(engine *search.Engine) *IdentifyHandler {
	return &IdentifyHandler{engine: engine}
}

// Identify matches a webcam snapshot against all stored descriptors.
func (h *IdentifyHandler) Identify(c *gin.Context) {
	if h.engine == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "identification temporarily unavailable"})
		return
	}

	var req dto.IdentifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	imageData, err := decodeImage(req.Image)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image encoding"})
		return
	}

	result, err := h.engine.Identify(c.Request.Context(), imageData)
	if err != nil {
		switch {
		case errors.Is(err, vision.ErrUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "identification temporarily unavailable"})
		case errors.Is(err, vision.ErrBadImage):
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable image"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	resp := dto.IdentifyResponse{Results: make([]dto.IdentifyResult, 0, len(result.Matches))}
	if result.NoFace {
		resp.Message = "no face detected"
		c.JSON(http.StatusOK, resp)
		return
	}

	for _, m := range result.Matches {
		resp.Results = append(resp.Results, dto.IdentifyResult{
			PhotoID:    m.PhotoID,
			Similarity: m.Similarity,
			Path:       m.Path,
			Date:       m.Date.Format("2006-01-02 15:04"),
		})
	}

	c.JSON(http.StatusOK, resp)
}

// decodeImage accepts plain base64 or a data URL
// ("data:image/jpeg;base64,....").
func decodeImage(s string) ([]byte, error) {
	if i := strings.IndexByte(s, ','); i >= 0 && strings.HasPrefix(s, "data:") {
		s = s[i+1:]
	}
	return base64.StdEncoding.DecodeString(s)
}
