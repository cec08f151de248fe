package handlers

import (
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/groupe-jds/doku-seal/internal/models"
	"github.com/pkg/errors"
)

var registerOnce sync.Once

// RegisterValidations registers the enum validators used by the request bindings on gin's validator
func RegisterValidations() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = errors.New("gin validator engine is not go-playground/validator")
			return
		}
		err = registerCustomValidations(v)
	})
	return err
}

func registerCustomValidations(v *validator.Validate) error {
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return f.Name
	})

	validations := map[string]func(string) bool{
		"envelope_status": func(s string) bool { return models.EnvelopeStatus(s).Valid() },
		"recipient_role":  func(s string) bool { return models.Role(s).Valid() },
		"field_type":      func(s string) bool { return models.FieldType(s).Valid() },
		"visibility":      func(s string) bool { return models.Visibility(s).Valid() },
		"signing_order":   func(s string) bool { return models.SigningOrder(s).Valid() },
		"distribution":    func(s string) bool { return models.DistributionMethod(s).Valid() },
	}

	for tag, valid := range validations {
		valid := valid
		if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return valid(fl.Field().String())
		}); err != nil {
			return errors.Wrapf(err, "failed to register %s validation", tag)
		}
	}
	return nil
}
