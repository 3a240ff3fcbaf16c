// Package validation holds the custom validator rules shared by request binding and the services.
package validation

import (
	"regexp"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	PincodeRegex = regexp.MustCompile(`^[1-9][0-9]{5}$`)
	PhoneRegex   = regexp.MustCompile(`^(\+91[\-\s]?)?[6-9][0-9]{9}$`)
	EmailRegex   = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

// Register installs the custom rules on v.
func Register(v *validator.Validate) error {
	rules := map[string]validator.Func{
		"pincode":  func(fl validator.FieldLevel) bool { return PincodeRegex.MatchString(fl.Field().String()) },
		"phone":    func(fl validator.FieldLevel) bool { return PhoneRegex.MatchString(fl.Field().String()) },
		"objectid": func(fl validator.FieldLevel) bool { return primitive.IsValidObjectID(fl.Field().String()) },
		"mail":     func(fl validator.FieldLevel) bool { return EmailRegex.MatchString(fl.Field().String()) },
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}

var (
	once     sync.Once
	instance *validator.Validate
)

// Validator returns the shared instance with the custom rules registered.
func Validator() *validator.Validate {
	once.Do(func() {
		instance = validator.New()
		if err := Register(instance); err != nil {
			panic(err)
		}
	})
	return instance
}

// Struct validates s with the shared instance.
func Struct(s interface{}) error {
	return Validator().Struct(s)
}
