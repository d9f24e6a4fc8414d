package validation

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/imrishuroy/go-qris-payflow/internal/apperrors"
)

// BindAndValidate binds the JSON body into out and runs validation. Failures
// come back as validation AppErrors for the handler to render.
func BindAndValidate(c *gin.Context, out interface{}, v *validatorv10.Validate) error {
	if err := c.ShouldBindJSON(out); err != nil {
		return apperrors.NewValidationError("invalid request body: "+err.Error(), nil)
	}

	if err := v.Struct(out); err != nil {
		return apperrors.NewValidationError("validation failed", validationErrorsToMap(err))
	}
	return nil
}

func validationErrorsToMap(err error) map[string]string {
	out := map[string]string{}
	var ve validatorv10.ValidationErrors
	if !errors.As(err, &ve) {
		out["error"] = err.Error()
		return out
	}
	for _, fe := range ve {
		out[fe.Field()] = fieldMessage(fe)
	}
	return out
}

func fieldMessage(fe validatorv10.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte", "lte":
		return "must be an integer between 1000 and 10000000"
	case "integer":
		return "must be a whole number"
	case "eq":
		return fmt.Sprintf("only '%s' is supported", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	}
	return fe.Error()
}
