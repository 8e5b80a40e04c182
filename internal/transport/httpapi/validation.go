package httpapi

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// fieldMessages maps "<field>.<tag>" (or just "<field>") to the text shown
// to users.
var fieldMessages = map[string]string{
	"name":         "Name is required",
	"email.email":  "Invalid email address",
	"email":        "Email is required",
	"subject":      "Subject is required",
	"message":      "Message is too short",
	"consent":      "You must consent to the processing of your data",
	"ocrMode":      "ocrMode must be one of auto, modern, historical, palm",
	"outputFormat": "outputFormat must be one of txt, pdf, json",
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
	return v
}

// validationMessage renders validator errors as a single readable line.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Validation error: " + err.Error()
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		msg, ok := fieldMessages[field+"."+fe.Tag()]
		if !ok {
			msg, ok = fieldMessages[field]
		}
		if !ok {
			msg = field + " failed " + fe.Tag() + " validation"
		}
		parts = append(parts, msg+` at "`+field+`"`)
	}
	return "Validation error: " + strings.Join(parts, "; ")
}
