package handler

import (
	"fmt"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"schedulix/backend/internal/scheduling"
)

var registerOnce sync.Once

// RegisterValidators installs the custom binding tags. Safe to call more
// than once.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		// only fails on an empty tag or nil func
		if err := v.RegisterValidation("hhmm", validateClock); err != nil {
			panic(fmt.Sprintf("register hhmm validator: %v", err))
		}
	})
}

// validateClock accepts "HH:MM" wall-clock times.
func validateClock(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if len(s) != 5 {
		return false
	}
	_, err := scheduling.ParseClock(s)
	return err == nil
}
