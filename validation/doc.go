// Package validation provides input validation utilities for flowkit.
//
// It supports both struct tag validation (using the validator library) and
// programmatic validation with error collection. Struct tag validation is
// used for configuration and workflow documents.
//
// # Struct Tag Validation
//
//	type GeneralConfig struct {
//	    Mode   string `validate:"required,oneof=production development"`
//	    Target string `validate:"required"`
//	}
//	err := validation.Validate(cfg)
//
// # Programmatic Validation
//
//	v := validation.New()
//	v.Required("workflow", path).Identifier("variable", name)
//	err := v.Validate()
package validation
