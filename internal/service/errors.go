package service

import (
	"errors"
	"strconv"

	"github.com/filtrotek/storefront/internal/utils"
)

func isNotFound(err error) bool {
	return errors.Is(err, utils.ErrProductNotFound) ||
		errors.Is(err, utils.ErrOrderNotFound) ||
		errors.Is(err, utils.ErrCategoryNotFound) ||
		errors.Is(err, utils.ErrVariantNotFound) ||
		errors.Is(err, utils.ErrDiscountNotFound) ||
		errors.Is(err, utils.ErrPostNotFound) ||
		errors.Is(err, utils.ErrUserNotFound)
}

// upstream marks err as a failure of a third-party service.
func upstream(service string, err error) error {
	return &utils.UpstreamError{Service: service, Err: err}
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
