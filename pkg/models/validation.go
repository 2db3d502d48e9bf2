package models

import (
	"regexp"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once

	cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

	// Step names must be identifiers so that {{ }} references to them can be found.
	stepNamePattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)
)

// Validator returns the shared validator with the model's custom tags registered.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("cron", validateCron)
		_ = validate.RegisterValidation("step_name", validateStepName)
	})

	return validate
}

// ValidateCronExpression checks a standard 5-field cron expression.
func ValidateCronExpression(expression string) error {
	_, err := cronParser.Parse(expression)

	return err
}

func validateCron(fl validator.FieldLevel) bool {
	return ValidateCronExpression(fl.Field().String()) == nil
}

func validateStepName(fl validator.FieldLevel) bool {
	return stepNamePattern.MatchString(fl.Field().String())
}
