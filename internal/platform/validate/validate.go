package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator wraps go-playground/validator with the custom validations used by
// request DTOs across the API.
type Validator struct {
	validate *validator.Validate
}

var (
	phonePattern   = regexp.MustCompile(`^\+?[0-9][0-9\s-]{6,14}$`)
	licencePattern = regexp.MustCompile(`^[A-Z]{2,4}-?[0-9]{4,10}$`)
)

func New() *Validator {
	v := validator.New()

	v.RegisterValidation("phone", validatePhone)
	v.RegisterValidation("medical_licence", validateMedicalLicence)
	v.RegisterValidation("blood_group", validateBloodGroup)

	return &Validator{validate: v}
}

// Validate checks the struct's validation tags and returns a flattened,
// client-presentable error listing each failed field.
func (v *Validator) Validate(i interface{}) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "phone":
		return fmt.Sprintf("%s must be a valid phone number", field)
	case "medical_licence":
		return fmt.Sprintf("%s must be a valid licence number", field)
	case "blood_group":
		return fmt.Sprintf("%s must be a valid blood group", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "uuid":
		return fmt.Sprintf("%s must be a valid UUID", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func validatePhone(fl validator.FieldLevel) bool {
	return phonePattern.MatchString(fl.Field().String())
}

func validateMedicalLicence(fl validator.FieldLevel) bool {
	return licencePattern.MatchString(strings.ToUpper(fl.Field().String()))
}

var bloodGroups = map[string]bool{
	"A+": true, "A-": true, "B+": true, "B-": true,
	"AB+": true, "AB-": true, "O+": true, "O-": true,
}

func validateBloodGroup(fl validator.FieldLevel) bool {
	return bloodGroups[strings.ToUpper(fl.Field().String())]
}
