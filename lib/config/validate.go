// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their file key rather than the Go field name.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks every field and joins all violations into one error.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var violations validator.ValidationErrors
	if !errors.As(err, &violations) {
		return fmt.Errorf("validating config: %w", err)
	}

	var errs []error
	for _, violation := range violations {
		errs = append(errs, fmt.Errorf("%s: %s", fieldKey(violation), describe(violation)))
	}
	return fmt.Errorf("invalid config: %w", errors.Join(errs...))
}

// fieldKey turns "Config.gateway.channel" into "gateway.channel".
func fieldKey(violation validator.FieldError) string {
	_, key, found := strings.Cut(violation.Namespace(), ".")
	if !found {
		return violation.Namespace()
	}
	return key
}

func describe(violation validator.FieldError) string {
	switch violation.Tag() {
	case "required", "required_if":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %q", violation.Param(), violation.Value())
	case "hostname_port":
		return fmt.Sprintf("must be host:port, got %q", violation.Value())
	case "nefield":
		return "must differ from " + strings.ToLower(violation.Param())
	case "gt", "gte", "gtefield":
		return fmt.Sprintf("out of range (%s %s)", violation.Tag(), violation.Param())
	default:
		return fmt.Sprintf("failed %s validation", violation.Tag())
	}
}
