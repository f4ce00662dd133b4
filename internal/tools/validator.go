package tools

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/book-expert/speech-mcp/internal/speech"
)

// Validator checks tool inputs before any request is built.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a Validator with the speech-specific rules registered.
func NewValidator() (*Validator, error) {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by the names the tool caller used.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return field.Name
		}

		return name
	})

	err := v.RegisterValidation("output_format", func(fl validator.FieldLevel) bool {
		return speech.IsSupportedFormat(fl.Field().String())
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register output_format validation: %w", err)
	}

	err = v.RegisterValidation("voice_preset", func(fl validator.FieldLevel) bool {
		_, presetErr := speech.Preset(fl.Field().String())

		return presetErr == nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register voice_preset validation: %w", err)
	}

	return &Validator{validate: v}, nil
}

// Validate returns a *ValidationError describing every failed field.
func (v *Validator) Validate(input any) error {
	err := v.validate.Struct(input)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return newValidationError(validationErrors)
	}

	return err
}

// ValidationError lists the human-readable field failures.
type ValidationError struct {
	Messages []string
}

func newValidationError(errs validator.ValidationErrors) *ValidationError {
	messages := make([]string, 0, len(errs))
	for _, fieldErr := range errs {
		messages = append(messages, fieldMessage(fieldErr))
	}

	return &ValidationError{Messages: messages}
}

func (e *ValidationError) Error() string {
	return "invalid input: " + strings.Join(e.Messages, "; ")
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()

	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be >= %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be <= %s", field, fe.Param())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", field, fe.Param())
	case "alpha":
		return field + " must contain letters only"
	case "output_format":
		return fmt.Sprintf("%s %q is not a supported output format", field, fe.Value())
	case "voice_preset":
		return fmt.Sprintf("%s must be one of: %s", field, strings.Join(speech.PresetNames(), ", "))
	default:
		return field + " failed validation"
	}
}
