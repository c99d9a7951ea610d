package view

import (
	"errors"
	"slices"

	"github.com/go-playground/validator/v10"
)

// FieldErrors converts validator failures into per-field messages keyed by the
// struct field name. A nil error yields an empty map.
func FieldErrors(err error) map[string]string {
	errs := make(map[string]string)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		if err != nil {
			errs["general"] = "Datos inválidos"
		}
		return errs
	}
	for _, fe := range verrs {
		errs[fe.Field()] = fieldMessage(fe)
	}
	return errs
}

// FirstError picks one message from errs deterministically, for pages that
// report a failed form through a flash.
func FirstError(errs map[string]string) string {
	if len(errs) == 0 {
		return ""
	}
	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return errs[keys[0]]
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Este campo es obligatorio"
	case "email":
		return "Ingresa un email válido"
	case "min":
		return "Debe tener al menos " + fe.Param() + " caracteres"
	case "max":
		return "Debe tener como máximo " + fe.Param() + " caracteres"
	case "oneof":
		return "Valor no permitido"
	case "gte", "gt":
		return "Debe ser mayor o igual a " + fe.Param()
	default:
		return "Valor inválido"
	}
}
