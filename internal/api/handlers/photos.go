package handlers

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/juandiegoalamohe-alt/localpix/internal/models"
	"github.com/juandiegoalamohe-alt/localpix/internal/queue"
	"github.com/juandiegoalamohe-alt/localpix/internal/storage"
	"github.com/juandiegoalamohe-alt/localpix/pkg/dto"
)

type PhotoHandler struct {
	db       *storage.PostgresStore
	photos   *storage.PhotoStore
	producer *queue.Producer
}

func NewPhotoHandler(db *storage.PostgresStore, photos *storage.PhotoStore, producer *queue.Producer) *PhotoHandler {
	return &PhotoHandler{db: db, photos: photos, producer: producer}
}

// Upload stores the photo and hands it off for background face extraction.
// The response never waits on extraction.
func (h *PhotoHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photo file required"})
		return
	}
	defer file.Close()

	imageData, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "read photo failed"})
		return
	}

	photographer := c.PostForm("photographer")
	if photographer == "" {
		photographer = "manual"
	}

	photo := &models.Photo{
		ID:           uuid.New(),
		Filename:     header.Filename,
		Photographer: photographer,
	}
	photo.ObjectKey = fmt.Sprintf("photos/%s/%s/%s_%s",
		time.Now().Format("2006-01-02"), photographer, photo.ID, header.Filename)

	if err := h.photos.Put(c.Request.Context(), photo.ObjectKey, imageData, header.Header.Get("Content-Type")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store photo failed"})
		return
	}

	if err := h.db.CreatePhoto(c.Request.Context(), photo); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	task := models.PhotoStoredTask{
		PhotoID:   photo.ID,
		ObjectKey: photo.ObjectKey,
		Timestamp: time.Now().UTC(),
	}
	if err := h.producer.PublishPhotoStored(c.Request.Context(), photo.ID.String(), task); err != nil {
		// Upload already succeeded; the photo just won't be searchable.
		slog.Error("publish photo task", "photo", photo.ID, "error", err)
	}

	c.JSON(http.StatusCreated, dto.UploadResponse{
		ID:        photo.ID,
		ObjectKey: photo.ObjectKey,
		CreatedAt: photo.CreatedAt.Format(time.RFC3339),
	})
}

// Delete removes a photo, its stored object and, via cascade, its
// descriptors.
func (h *PhotoHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid photo id"})
		return
	}

	photo, err := h.db.GetPhoto(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if photo == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "photo not found"})
		return
	}

	if err := h.db.DeletePhoto(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := h.photos.Delete(c.Request.Context(), photo.ObjectKey); err != nil {
		slog.Warn("delete photo object", "photo", id, "error", err)
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
