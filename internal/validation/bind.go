package validation

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/imrishuroy/watch-storefront/internal/apperr"
)

// BindAndValidate binds the JSON body into out and runs validation.
// On failure it writes a 400 response and returns the error so the handler
// can short-circuit.
func BindAndValidate(c *gin.Context, out any, v *validatorv10.Validate) error {
	if err := c.ShouldBindJSON(out); err != nil {
		verr := apperr.NewValidation("Invalid request body", nil)
		abort(c, verr)
		return verr
	}
	return validate(c, out, v)
}

// BindQueryAndValidate is BindAndValidate for query parameters.
func BindQueryAndValidate(c *gin.Context, out any, v *validatorv10.Validate) error {
	if err := c.ShouldBindQuery(out); err != nil {
		verr := apperr.NewValidation("Invalid query parameters", nil)
		abort(c, verr)
		return verr
	}
	return validate(c, out, v)
}

func validate(c *gin.Context, out any, v *validatorv10.Validate) error {
	if err := Check(v, out); err != nil {
		abort(c, err)
		return err
	}
	return nil
}

func abort(c *gin.Context, err error) {
	body := gin.H{
		"error":   apperr.Validation.String(),
		"message": apperr.UserMessage(err),
	}
	var e *apperr.Error
	if errors.As(err, &e) && len(e.Fields) > 0 {
		body["fields"] = e.Fields
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, body)
}
