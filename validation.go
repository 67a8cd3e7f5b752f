package auth

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/nyaruka/phonenumbers"
)

// DefaultPhoneRegion is used to parse numbers without a country prefix
const DefaultPhoneRegion = "IN"

// ValidPhone checks the value is a valid phone number for the region.
// Empty values pass, combine with validation.Required when needed.
func ValidPhone(region string) validation.RuleFunc {
	if region == "" {
		region = DefaultPhoneRegion
	}
	return func(value any) error {
		s, _ := value.(string)
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		num, err := phonenumbers.Parse(s, region)
		if err != nil {
			return errors.New("must be a valid phone number")
		}
		if !phonenumbers.IsValidNumber(num) {
			return errors.New("must be a valid phone number")
		}
		return nil
	}
}

// RuneLength checks the number of characters, not bytes
func RuneLength(min, max int) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s == "" {
			return nil
		}
		n := utf8.RuneCountInString(s)
		if n < min || n > max {
			if min == 0 {
				return fmt.Errorf("must be no more than %d characters", max)
			}
			return fmt.Errorf("must be between %d and %d characters", min, max)
		}
		return nil
	}
}

// FieldErrors flattens ozzo validation errors into field -> message
func FieldErrors(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, ferr := range verrs {
			if ferr == nil {
				continue
			}
			out[field] = ferr.Error()
		}
		return out
	}

	out["_"] = err.Error()
	return out
}

// Validate checks a profile update before it is merged
func (p PartialClaims) Validate(region string) error {
	err := validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.By(nonEmptyPtr), validation.By(ptrRule(RuneLength(2, 100)))),
		validation.Field(&p.Phone, validation.By(ptrRule(ValidPhone(region)))),
		validation.Field(&p.Bio, validation.By(ptrRule(RuneLength(0, 500)))),
		validation.Field(&p.Course, validation.By(ptrRule(RuneLength(0, 100)))),
		validation.Field(&p.Semester, validation.By(ptrRule(RuneLength(0, 20)))),
		validation.Field(&p.Address, validation.By(ptrRule(RuneLength(0, 250)))),
		validation.Field(&p.EmergencyContact, validation.By(ptrRule(ValidPhone(region)))),
		validation.Field(&p.Avatar, validation.By(ptrRule(RuneLength(0, 500)))),
	)
	if err != nil {
		return ValidationError("invalid profile update", FieldErrors(err))
	}
	return nil
}

func ptrRule(rule validation.RuleFunc) validation.RuleFunc {
	return func(value any) error {
		switch s := value.(type) {
		case *string:
			if s == nil {
				return nil
			}
			return rule(*s)
		case string:
			return rule(s)
		}
		return nil
	}
}

func nonEmptyPtr(value any) error {
	switch s := value.(type) {
	case *string:
		if s != nil && strings.TrimSpace(*s) == "" {
			return errors.New("cannot be blank")
		}
	case string:
		if strings.TrimSpace(s) == "" {
			return errors.New("cannot be blank")
		}
	}
	return nil
}
