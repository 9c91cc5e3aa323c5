package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/filtrotek/storefront/internal/service"
	"github.com/filtrotek/storefront/internal/utils"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(service.JSONFieldName)
	}
}

// bindJSON decodes the body and writes a 400 when it is malformed or fails
// its binding rules.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		var verr *utils.ValidationError
		if errors.As(service.AsValidationError(err), &verr) {
			utils.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Solicitud inválida", verr.Messages())
			return false
		}
		utils.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Cuerpo de la solicitud inválido")
		return false
	}
	return true
}

// paramID parses a positive integer path parameter.
func paramID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		utils.Error(c, http.StatusBadRequest, "INVALID_ID", "Identificador inválido: "+name)
		return 0, false
	}
	return id, true
}

// pageParams reads page and limit; the repositories clamp them.
func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}

// respondError maps service errors onto the response envelope.
func respondError(c *gin.Context, err error) {
	var (
		verr     *utils.ValidationError
		stockErr *utils.InsufficientStockError
		discErr  *utils.DiscountRejectedError
		upErr    *utils.UpstreamError
	)
	switch {
	case errors.As(err, &verr):
		utils.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Solicitud inválida", verr.Messages())
	case errors.As(err, &stockErr):
		utils.Error(c, http.StatusBadRequest, "INSUFFICIENT_STOCK", stockErr.Error())
	case errors.As(err, &discErr):
		utils.Error(c, http.StatusBadRequest, "INVALID_DISCOUNT", discErr.Reason)
	case errors.As(err, &upErr):
		log.Error().Err(err).Str("path", c.FullPath()).Msg("Upstream service failed")
		utils.Error(c, http.StatusBadGateway, strings.ToUpper(upErr.Service)+"_ERROR", "Servicio externo no disponible")

	case errors.Is(err, utils.ErrProductNotFound),
		errors.Is(err, utils.ErrCategoryNotFound),
		errors.Is(err, utils.ErrVariantNotFound),
		errors.Is(err, utils.ErrOrderNotFound),
		errors.Is(err, utils.ErrDiscountNotFound),
		errors.Is(err, utils.ErrPostNotFound),
		errors.Is(err, utils.ErrUserNotFound):
		utils.Error(c, http.StatusNotFound, err.Error(), "Recurso no encontrado")

	case errors.Is(err, utils.ErrEmailTaken),
		errors.Is(err, utils.ErrDuplicateCode),
		errors.Is(err, utils.ErrDuplicateSlug):
		utils.Error(c, http.StatusConflict, err.Error(), "El recurso ya existe")

	case errors.Is(err, utils.ErrInvalidCredentials):
		utils.Error(c, http.StatusUnauthorized, err.Error(), "Correo o contraseña incorrectos")
	case errors.Is(err, utils.ErrAccountInactive):
		utils.Error(c, http.StatusForbidden, err.Error(), "La cuenta está inactiva")
	case errors.Is(err, utils.ErrInvalidTransition):
		utils.Error(c, http.StatusBadRequest, err.Error(), "Cambio de estado no permitido")
	case errors.Is(err, utils.ErrNotRefundable):
		utils.Error(c, http.StatusBadRequest, err.Error(), "El pedido no se puede reembolsar")
	case errors.Is(err, utils.ErrInvalidSignature):
		utils.Error(c, http.StatusBadRequest, err.Error(), "Firma del webhook inválida")
	case errors.Is(err, utils.ErrStorageDisabled):
		utils.Error(c, http.StatusServiceUnavailable, err.Error(), "El almacenamiento de imágenes no está configurado")

	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
		utils.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Error interno del servidor")
	}
}
