package validation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/redmonkez12/task-api/internal/apperror"
	"github.com/redmonkez12/task-api/internal/httputil"
)

// ErrInvalidBody is returned when a request body is not valid JSON.
var ErrInvalidBody = apperror.NewValidation("invalid request body")

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

type bodyKey struct{}

// Validator checks request structs against their validate tags and reports
// the first violation using JSON field names.
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return &Validator{validate: v}
}

// Struct validates s and returns a validation error for its first violation.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return apperror.NewValidation(message(fieldErrs[0]))
	}

	return apperror.NewValidation("invalid request").Wrap(err)
}

// Decode reads a JSON body into dst and validates it.
func (v *Validator) Decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return ErrInvalidBody.Wrap(err)
	}
	return v.Struct(dst)
}

// Body decodes and validates the JSON body into a T before the handler
// runs. The handler reads it back with FromContext.
func Body[T any](v *Validator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body := new(T)
			if err := v.Decode(r, body); err != nil {
				httputil.RespondErr(w, r, err)
				return
			}
			ctx := context.WithValue(r.Context(), bodyKey{}, body)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromContext returns the body stored by Body[T].
func FromContext[T any](ctx context.Context) (*T, bool) {
	body, ok := ctx.Value(bodyKey{}).(*T)
	return body, ok
}

func message(fe validator.FieldError) string {
	field := fe.Field()

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "eqfield":
		return fmt.Sprintf("%s must match %s", field, lowerFirst(fe.Param()))
	case "uuid", "uuid4":
		return fmt.Sprintf("%s must be a valid id", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
