// Package validation checks commands and configuration before anything is
// started.
//
// It supports struct tag validation (go-playground/validator) with the extra
// tags "envname" and "envvalue", and programmatic validation with error
// collection. Both report failures as an *errors.AppError with code
// INVALID_INPUT and a "fields" detail.
//
// # Struct Tag Validation
//
//	type Job struct {
//	    Args []string          `validate:"required,min=1"`
//	    Env  map[string]string `validate:"omitempty,dive,keys,envname,endkeys,envvalue"`
//	}
//	err := validation.Validate(job)
//
// # Programmatic Validation
//
//	v := validation.New()
//	v.Required("args[0]", args[0]).EnvName("env", key)
//	if appErr := v.Validate(); appErr != nil { ... }
package validation
