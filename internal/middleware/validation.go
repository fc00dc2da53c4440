package middleware

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "volexplorer/internal/errors"
)

// maxBodyBytes caps JSON request bodies
const maxBodyBytes = 1 << 20

// Validator binds and validates request payloads with struct tags
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a validator that reports fields by their JSON names
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: v}
}

// DecodeJSON decodes the request body into dst and validates it. Errors are
// *apierrors.APIError values ready for the error handler.
func (v *Validator) DecodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return apierrors.ErrInvalidRequest
	}
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	if err := render.DecodeJSON(body, dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apierrors.InvalidRequestWithError(errors.New("request body is empty"))
		}
		return apierrors.InvalidRequestWithError(err)
	}
	return v.ValidateStruct(dst)
}

// ValidateStruct validates a struct and returns validation errors
func (v *Validator) ValidateStruct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apierrors.InvalidRequestWithError(err)
	}

	out := make([]apierrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, apierrors.ValidationError{
			Field:   fe.Field(),
			Message: formatValidationError(fe),
		})
	}
	return apierrors.NewValidationErrors(out)
}

func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, param)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "numeric":
		return fmt.Sprintf("%s must be numeric", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}

// QueryInt64 parses an optional integer query parameter. ok is false when absent.
func QueryInt64(r *http.Request, param string) (value int64, ok bool, err error) {
	raw := strings.TrimSpace(r.URL.Query().Get(param))
	if raw == "" {
		return 0, false, nil
	}
	value, err = strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, apierrors.ErrValidation(param, fmt.Sprintf("%s must be an integer", param))
	}
	return value, true, nil
}

// QueryInt parses an optional non-negative integer query parameter, returning def when absent.
func QueryInt(r *http.Request, param string, def int) (int, error) {
	v, ok, err := QueryInt64(r, param)
	if err != nil || !ok {
		return def, err
	}
	if v < 0 || v > int64(^uint32(0)>>1) {
		return 0, apierrors.ErrValidation(param, fmt.Sprintf("%s must be a non-negative integer", param))
	}
	return int(v), nil
}

// QueryEnum returns the lower-cased parameter if it is one of allowed, def when absent.
func QueryEnum(r *http.Request, param string, allowed []string, def string) (string, error) {
	raw := strings.ToLower(strings.TrimSpace(r.URL.Query().Get(param)))
	if raw == "" {
		return def, nil
	}
	for _, a := range allowed {
		if raw == a {
			return raw, nil
		}
	}
	return "", apierrors.ErrValidation(param, fmt.Sprintf("%s must be one of: %s", param, strings.Join(allowed, ", ")))
}
