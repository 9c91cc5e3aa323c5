package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/filtrotek/storefront/internal/service"
	"github.com/filtrotek/storefront/internal/utils"
)

type deleteUploadRequest struct {
	Key string `json:"key" binding:"required"`
}

// UploadHandler stores admin images.
type UploadHandler struct {
	s3Service *service.S3Service
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(s3Service *service.S3Service) *UploadHandler {
	return &UploadHandler{s3Service: s3Service}
}

// Upload handles POST /v1/admin/uploads (multipart: file, folder)
func (h *UploadHandler) Upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Falta el archivo")
		return
	}
	if fh.Size > service.MaxImageSize {
		utils.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Solicitud inválida", []string{"file: la imagen excede 5 MB"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "No se pudo leer el archivo")
		return
	}
	defer f.Close()

	img, err := h.s3Service.UploadImage(c.Request.Context(), c.PostForm("folder"), f)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusCreated, "Imagen subida", img)
}

// Delete handles DELETE /v1/admin/uploads
func (h *UploadHandler) Delete(c *gin.Context) {
	var req deleteUploadRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.s3Service.DeleteImage(c.Request.Context(), req.Key); err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Imagen eliminada", nil)
}
