package utils

import (
	"log"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// InitValidator registers the custom binding rules on gin's validator
// engine. Call once before the router handles traffic.
func InitValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		log.Printf("Warning: gin binding validator engine unavailable; custom rules not registered")
		return
	}
	if err := v.RegisterValidation("iplike", ValidateIPLikeRule); err != nil {
		log.Printf("Warning: failed to register iplike validation: %v", err)
	}
}

// ValidateIPLikeRule accepts values that look like an IPv4 or IPv6
// address, with the same loose IPv6 acceptance the normalizer uses.
func ValidateIPLikeRule(fl validator.FieldLevel) bool {
	return IsLikelyIP(fl.Field().String())
}
