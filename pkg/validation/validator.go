package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	// Validation constants
	MaxQueryNameLength = 128
	MaxFilters         = 64
	MaxFilterKey       = 64

	// Query names become report file names.
	queryNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.\- ]*$`)
)

func init() {
	validate = validator.New()
	// Report json field names so messages match what the caller sent.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
}

// OptimizeRequest is the loose, not yet typed form of a query as it
// arrives from a query file or the HTTP API.
type OptimizeRequest struct {
	QueryName  string         `json:"query_name" yaml:"query_name" validate:"required,max=128"`
	OptimizeBy string         `json:"optimize_by" yaml:"optimize_by" validate:"required,oneof=time temperature balanced"`
	Alpha      *float64       `json:"alpha,omitempty" yaml:"alpha,omitempty" validate:"omitempty,min=0,max=1"`
	Filters    map[string]any `json:"filters" yaml:"filters" validate:"required,max=64"`
}

// ValidateOptimizeRequest checks the shape of req. Filter contents are
// checked later when they are parsed into typed filters.
func ValidateOptimizeRequest(req *OptimizeRequest) error {
	if req == nil {
		return errors.New("optimize request cannot be nil")
	}

	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}

	if !queryNamePattern.MatchString(req.QueryName) {
		return fmt.Errorf("query_name: '%s' contains invalid characters", req.QueryName)
	}
	if strings.Contains(req.QueryName, "..") {
		return fmt.Errorf("query_name: '%s' must not contain '..'", req.QueryName)
	}

	for key := range req.Filters {
		if err := ValidateFilterKey(key); err != nil {
			return fmt.Errorf("filters: %w", err)
		}
	}
	return nil
}

// ValidateFilterKey validates a raw filter key
func ValidateFilterKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("filter key cannot be empty")
	}
	if len(key) > MaxFilterKey {
		return fmt.Errorf("filter key '%s' exceeds maximum length of %d characters", key, MaxFilterKey)
	}
	return nil
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	// Return the first validation error in a user-friendly format
	for _, e := range validationErrs {
		field := e.Field()
		param := e.Param()

		switch e.Tag() {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "min":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "max":
			return fmt.Errorf("%s: must not exceed %s", field, param)
		case "oneof":
			return fmt.Errorf("%s: must be one of [%s], got %v", field, param, e.Value())
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, e.Tag())
		}
	}

	return err
}
