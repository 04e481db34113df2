package dto

import (
	"regexp"

	"vas-gateway/internal/core/domain"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Accepts local (0803...) and international (234803..., +234803...) forms.
var msisdnRe = regexp.MustCompile(`^\+?[0-9]{10,15}$`)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("merchant_ref", validateMerchantRef)
		_ = v.RegisterValidation("msisdn", validateMSISDN)
	}
}

// validateMerchantRef allows letters, digits and hyphens. The reference is
// forwarded verbatim as the upstream request ID.
func validateMerchantRef(fl validator.FieldLevel) bool {
	return domain.ValidMerchantRef(fl.Field().String())
}

func validateMSISDN(fl validator.FieldLevel) bool {
	return msisdnRe.MatchString(fl.Field().String())
}
