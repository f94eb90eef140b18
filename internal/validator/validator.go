// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"papertrade/internal/provider"
)

var (
	// Tickers like AAPL, BRK.B, BF-B and index or FX forms such as ^GSPC or EURUSD=X.
	symbolRegex   = regexp.MustCompile(`^\^?[A-Za-z0-9][A-Za-z0-9.\-]{0,9}(=[A-Za-z])?$`)
	usernameRegex = regexp.MustCompile(`^[A-Za-z0-9_.\-]{3,50}$`)
)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("symbol", validateSymbol)
		_ = v.RegisterValidation("username", validateUsername)
		_ = v.RegisterValidation("history_period", validateHistoryPeriod)
	}
}

func validateSymbol(fl validator.FieldLevel) bool {
	return symbolRegex.MatchString(strings.TrimSpace(fl.Field().String()))
}

func validateUsername(fl validator.FieldLevel) bool {
	return usernameRegex.MatchString(fl.Field().String())
}

func validateHistoryPeriod(fl validator.FieldLevel) bool {
	return provider.ValidPeriod(fl.Field().String())
}
