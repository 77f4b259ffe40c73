package resource

import (
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/taskdata/taskd/kit/platform/errors"
)

// PayloadValidator checks a decoded request payload against a JSON Schema
// and reports failures with per-field detail.
type PayloadValidator struct {
	schema *jsonschema.Schema
}

// MustValidator compiles a JSON Schema document, panicking on a bad schema.
// Schemas are package-level constants, so a failure here is a programming
// error caught by any test that touches the package.
func MustValidator(name, source string) *PayloadValidator {
	return &PayloadValidator{
		schema: jsonschema.MustCompileString(name, source),
	}
}

// Validate checks the payload, returning an invalid error carrying a
// field-to-message map in its details.
func (v *PayloadValidator) Validate(payload interface{}) error {
	err := v.schema.Validate(payload)
	if err == nil {
		return nil
	}

	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return &errors.Error{
			Code: errors.EInternal,
			Op:   "resource.Validate",
			Err:  err,
		}
	}

	return &errors.Error{
		Code:    errors.EInvalid,
		Msg:     "request payload failed validation",
		Details: fieldMessages(ve),
	}
}

// fieldMessages flattens a validation error tree into one message per field.
func fieldMessages(ve *jsonschema.ValidationError) map[string]string {
	out := map[string]string{}
	collectLeaves(ve, out)
	return out
}

func collectLeaves(ve *jsonschema.ValidationError, out map[string]string) {
	if len(ve.Causes) == 0 {
		field := strings.TrimPrefix(ve.InstanceLocation, "/")
		if field == "" {
			field = "payload"
		}
		if _, ok := out[field]; !ok {
			out[field] = ve.Message
		}
		return
	}

	for _, cause := range ve.Causes {
		collectLeaves(cause, out)
	}
}
