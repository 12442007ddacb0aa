package http

import (
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/comitanigiacomo/kanso-reminders/internal/core/domain"
)

var registerOnce sync.Once

// RegisterValidators installs the custom binding rules on gin's validator.
func RegisterValidators() {
	registerOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			_ = v.RegisterValidation("weekday", ValidateWeekDayRule)
		}
	})
}

// ValidateWeekDayRule accepts the three-letter day codes, case-insensitive.
func ValidateWeekDayRule(fl validator.FieldLevel) bool {
	_, ok := domain.LookupWeekDay(fl.Field().String())
	return ok
}
