package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/imrishuroy/watch-storefront/internal/apperr"
)

var (
	phonePattern   = regexp.MustCompile(`^[6-9]\d{9}$`)
	pincodePattern = regexp.MustCompile(`^\d{6}$`)
)

// messages overrides the generic text for a field and tag, keyed "field|tag".
var messages = map[string]string{
	"addressId|required_without": "Please select an address or add a new one",
	"paymentMethod|required":     "Please select a payment method",
	"paymentMethod|oneof":        "Please select a payment method",
}

// New returns a validator with the storefront tags registered:
// in_phone (Indian mobile number) and pincode (six digits). Field names in
// errors follow the json tag.
func New() *validatorv10.Validate {
	v := validatorv10.New()
	v.RegisterTagNameFunc(jsonName)
	mustRegister(v, "in_phone", matches(phonePattern))
	mustRegister(v, "pincode", matches(pincodePattern))
	return v
}

func mustRegister(v *validatorv10.Validate, tag string, fn validatorv10.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s: %v", tag, err))
	}
}

func matches(re *regexp.Regexp) validatorv10.Func {
	return func(fl validatorv10.FieldLevel) bool {
		return re.MatchString(strings.TrimSpace(fl.Field().String()))
	}
}

func jsonName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		name = f.Tag.Get("form")
	}
	if name == "" {
		return f.Name
	}
	return name
}

// Check validates s and returns an apperr Validation error carrying one
// entry per failing field. The message describes the first failure.
func Check(v *validatorv10.Validate, s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var ve validatorv10.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return apperr.NewValidation("Invalid request", nil)
	}
	return apperr.NewValidation(message(ve[0]), Fields(ve))
}

// Fields maps each failing field path (without the root struct) to its tag.
func Fields(ve validatorv10.ValidationErrors) map[string]string {
	out := make(map[string]string, len(ve))
	for _, fe := range ve {
		out[fieldPath(fe)] = fe.Tag()
	}
	return out
}

func fieldPath(fe validatorv10.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func message(fe validatorv10.FieldError) string {
	if m, ok := messages[fe.Field()+"|"+fe.Tag()]; ok {
		return m
	}
	field := fe.Field()
	switch fe.Tag() {
	case "required", "required_if", "required_without":
		return field + " is required"
	case "in_phone":
		return "Please enter a valid 10-digit mobile number"
	case "pincode":
		return "Please enter a valid 6-digit pincode"
	case "email":
		return "Please enter a valid email address"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "datetime":
		return fmt.Sprintf("%s must be a date like %s", field, fe.Param())
	default:
		return field + " is invalid"
	}
}
