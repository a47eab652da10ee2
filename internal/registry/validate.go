package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidationError maps a dotted field path (for example "smtp.port") to the
// rule it violated.
type ValidationError map[string]string

// Error implements the error interface.
func (ve ValidationError) Error() string {
	if len(ve) == 0 {
		return "validation error"
	}

	b, err := json.Marshal(map[string]string(ve))
	if err != nil {
		return fmt.Sprintf("validation error (failed to marshal: %v)", err)
	}
	return "invalid server profile: " + string(b)
}

// Validate checks a profile against its field rules.
func (p ServerProfile) Validate() error {
	if err := validate.Struct(p); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}

		ve := make(ValidationError, len(fieldErrs))
		for _, fe := range fieldErrs {
			ve[fieldPath(fe.Namespace())] = rule(fe)
		}
		return ve
	}
	return nil
}

// fieldPath turns "ServerProfile.SMTP.Host" into "smtp.host".
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		namespace = namespace[i+1:]
	}
	return strings.ToLower(namespace)
}

func rule(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}
