package validation

import (
	"math"
	"reflect"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"
)

// New returns a configured validator with custom struct-level validation registered.
// Field errors are keyed by json name so clients see the names they sent.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// amounts are whole rupiah; the range tags alone would accept 1500.5
	v.RegisterStructValidation(createPaymentStructValidation, CreatePaymentRequest{})

	return v
}

func createPaymentStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(CreatePaymentRequest)

	if req.Amount != math.Trunc(req.Amount) {
		sl.ReportError(req.Amount, "amount", "Amount", "integer", "")
	}
}
