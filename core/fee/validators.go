package fee

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/escola/core"
)

var (
	monthTag  = "month"
	monthText = "enter a valid month, eg. January"
)

// InitValidators registers the fee validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(monthTag, monthValidation)
	core.RegisterCustomTranslation(validate, translator, monthTag, monthText)
}
