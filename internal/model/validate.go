package model

import (
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// hhmm accepts a 24h "HH:MM" clock.
	_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		_, _, ok := ParseClock(fl.Field().String())
		return ok
	})
	return v
}
