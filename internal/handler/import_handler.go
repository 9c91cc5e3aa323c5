package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/filtrotek/storefront/internal/service"
	"github.com/filtrotek/storefront/internal/utils"
)

const (
	maxImportFile = 10 << 20
	xlsxMIME      = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ImportHandler runs spreadsheet imports.
type ImportHandler struct {
	importService *service.ImportService
}

// NewImportHandler creates a new ImportHandler.
func NewImportHandler(importService *service.ImportService) *ImportHandler {
	return &ImportHandler{importService: importService}
}

// ImportProducts handles POST /v1/admin/import/products
func (h *ImportHandler) ImportProducts(c *gin.Context) {
	h.run(c, h.importService.ImportProducts)
}

// ImportCategories handles POST /v1/admin/import/categories
func (h *ImportHandler) ImportCategories(c *gin.Context) {
	h.run(c, h.importService.ImportCategories)
}

func (h *ImportHandler) run(c *gin.Context, fn func(ctx context.Context, r io.Reader) (*service.ImportResult, error)) {
	fh, err := c.FormFile("file")
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Falta el archivo")
		return
	}
	if fh.Size > maxImportFile {
		utils.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Solicitud inválida", []string{"file: el archivo excede 10 MB"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "No se pudo leer el archivo")
		return
	}
	defer f.Close()

	res, err := fn(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Importación terminada", res)
}

// Template handles GET /v1/admin/import/templates/:kind
func (h *ImportHandler) Template(c *gin.Context) {
	kind := c.Param("kind")
	data, err := h.importService.Template(kind)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="plantilla-`+kind+`.xlsx"`)
	c.Data(http.StatusOK, xlsxMIME, data)
}
