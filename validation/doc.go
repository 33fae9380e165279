// Package validation checks configuration and graph definitions.
//
// Struct tags cover per-field rules:
//
//	type Config struct {
//	    Concurrency int `mapstructure:"concurrency" validate:"gte=0"`
//	}
//	err := validation.Validate(cfg)
//
// The collecting Validator covers the rest:
//
//	v := validation.New()
//	v.Unique("tasks.name", names).Exists("tasks[0].cwd", cwd)
//	if err := v.Validate(); err != nil { ... }
package validation
