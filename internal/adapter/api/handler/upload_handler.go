package handler

import (
	"github.com/labstack/echo/v4"

	"roamly/internal/infrastructure/storage"
	"roamly/pkg/config"
	"roamly/pkg/errors"
	"roamly/pkg/response"
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// UploadHandler accepts avatar and message photos and stores them in
// GCS. The returned URL goes into a profile or a message's
// attachment_url.
type UploadHandler struct {
	storage *storage.CloudStorageClient
	cfg     *config.Config
}

func NewUploadHandler(storageClient *storage.CloudStorageClient, cfg *config.Config) *UploadHandler {
	return &UploadHandler{
		storage: storageClient,
		cfg:     cfg,
	}
}

func (h *UploadHandler) Upload(c echo.Context) error {
	userID := c.Get("uid").(string)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return response.Error(c, errors.BadRequest("file is required", err))
	}

	maxBytes := h.cfg.MaxUploadSizeMB * 1024 * 1024
	if fileHeader.Size > maxBytes {
		return response.Error(c, errors.BadRequest("File exceeds the upload size limit", nil))
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if !allowedImageTypes[contentType] {
		return response.Error(c, errors.BadRequest("Only image uploads are supported", nil))
	}

	folder := c.FormValue("folder")
	switch folder {
	case "avatars", "messages":
	case "":
		folder = "messages"
	default:
		return response.Error(c, errors.BadRequest("folder must be one of: avatars, messages", nil))
	}

	src, err := fileHeader.Open()
	if err != nil {
		return response.Error(c, errors.Internal("Failed to read upload", err))
	}
	defer src.Close()

	url, err := h.storage.UploadFile(c.Request().Context(), src, contentType, folder+"/"+userID)
	if err != nil {
		return response.Error(c, errors.Internal("Failed to store upload", err))
	}

	return response.Created(c, map[string]string{"url": url})
}
