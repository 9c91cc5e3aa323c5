package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/filtrotek/storefront/internal/utils"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(JSONFieldName)
	return v
}

// JSONFieldName reports fields by their JSON name.
func JSONFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return f.Name
	}
	return name
}

// validateStruct runs the validate tags on s and converts failures into a
// ValidationError with Spanish messages keyed by JSON field path.
func validateStruct(s interface{}) error {
	return AsValidationError(validate.Struct(s))
}

// AsValidationError converts validator failures, including those from gin
// binding, into a ValidationError. Other errors are returned unchanged.
func AsValidationError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldPath(fe)] = fieldMessage(fe)
	}
	return &utils.ValidationError{Fields: fields}
}

// fieldPath drops the root struct name: "CheckoutRequest.items[0].quantity"
// becomes "items[0].quantity".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "es obligatorio"
	case "email":
		return "debe ser un correo electrónico válido"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("debe contener al menos %s elemento(s)", fe.Param())
		}
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("debe tener al menos %s caracteres", fe.Param())
		}
		return fmt.Sprintf("debe ser al menos %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("no puede contener más de %s elementos", fe.Param())
		}
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("no puede tener más de %s caracteres", fe.Param())
		}
		return fmt.Sprintf("no puede ser mayor a %s", fe.Param())
	case "gt":
		return fmt.Sprintf("debe ser mayor a %s", fe.Param())
	case "lte":
		return fmt.Sprintf("no puede ser mayor a %s", fe.Param())
	case "len":
		return fmt.Sprintf("debe tener %s caracteres", fe.Param())
	case "numeric":
		return "debe contener solo números"
	case "e164", "phone":
		return "debe ser un teléfono válido"
	case "oneof":
		return fmt.Sprintf("debe ser uno de: %s", fe.Param())
	case "gte":
		return fmt.Sprintf("debe ser al menos %s", fe.Param())
	case "iso3166_1_alpha2":
		return "debe ser un código de país de dos letras"
	default:
		return "no es válido"
	}
}
