package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	playground "github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"
)

// MinYear is the earliest publication year accepted for a book.
const MinYear = 1000

// Rules carries the configurable parts of the field rules.
type Rules struct {
	// NameAlphabet is a regexp character-class body (without brackets) of
	// the letters allowed in reader names. Whitespace is always allowed.
	NameAlphabet string
	// PhoneCountryCode is the dialing code expected after '+'.
	PhoneCountryCode string
	Now              func() time.Time
}

func DefaultRules() Rules {
	return Rules{
		NameAlphabet:     "а-яА-ЯіІїЇєЄ",
		PhoneCountryCode: "380",
		Now:              time.Now,
	}
}

// Engine evaluates `validate` struct tags and reports failures into a
// Validator using the json field names.
type Engine struct {
	validate *playground.Validate
	rules    Rules
	nameRX   *regexp.Regexp
	phoneRX  *regexp.Regexp
}

func NewEngine(rules Rules) (*Engine, error) {
	if rules.Now == nil {
		rules.Now = time.Now
	}
	if strings.TrimSpace(rules.NameAlphabet) == "" {
		return nil, errors.New("name alphabet must not be empty")
	}
	if rules.PhoneCountryCode == "" || strings.Trim(rules.PhoneCountryCode, "0123456789") != "" {
		return nil, fmt.Errorf("invalid phone country code %q", rules.PhoneCountryCode)
	}

	nameRX, err := regexp.Compile(`^[` + rules.NameAlphabet + `\s]+$`)
	if err != nil {
		return nil, fmt.Errorf("compile name alphabet: %w", err)
	}

	e := &Engine{
		validate: playground.New(),
		rules:    rules,
		nameRX:   nameRX,
		phoneRX:  regexp.MustCompile(`^\+` + rules.PhoneCountryCode + `\d{9}$`),
	}

	e.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	validations := map[string]playground.Func{
		"isbn978":       matchString(ISBNRX),
		"card_number":   matchString(CardNumberRX),
		"phone":         matchString(e.phoneRX),
		"alphabet_name": e.alphabetName,
		"year_range":    e.yearRange,
		"between":       between,
	}
	for tag, fn := range validations {
		if err := e.validate.RegisterValidation(tag, fn); err != nil {
			return nil, fmt.Errorf("register %s: %w", tag, err)
		}
	}

	return e, nil
}

// Rules returns the rules the engine was built with.
func (e *Engine) Rules() Rules { return e.rules }

// Struct validates s and records one message per failing field in v.
func (e *Engine) Struct(v *Validator, s any) {
	err := e.validate.Struct(s)
	if err == nil {
		return
	}

	var fieldErrs playground.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		v.AddError("input", "Invalid input")
		return
	}
	for _, fe := range fieldErrs {
		v.AddError(fe.Field(), e.message(fe))
	}
}

// NameMatches reports whether name uses only the configured alphabet and
// whitespace.
func (e *Engine) NameMatches(name string) bool {
	return e.nameRX.MatchString(NormalizeName(name))
}

// CurrentYear is the upper bound for book.year.
func (e *Engine) CurrentYear() int {
	return e.rules.Now().Year()
}

func (e *Engine) message(fe playground.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Field '%s' is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", Label(field), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", Label(field), fe.Param())
	case "isbn978":
		return "Invalid ISBN format (978-XXX-XX-XXXX-X)"
	case "card_number":
		return "Invalid card number format (RD123456)"
	case "phone":
		return fmt.Sprintf("Invalid phone format (+%sXXXXXXXXX)", e.rules.PhoneCountryCode)
	case "email":
		return "Invalid email format"
	case "alphabet_name":
		return "Name can only contain letters and spaces"
	case "year_range":
		return fmt.Sprintf("Year must be between %d and %d", MinYear, e.CurrentYear())
	case "between":
		lo, hi, _ := strings.Cut(fe.Param(), " ")
		return fmt.Sprintf("%s must be between %s and %s", Label(field), lo, hi)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", Label(field), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", Label(field), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", Label(field), fe.Param())
	}
	return fmt.Sprintf("%s is invalid", Label(field))
}

func (e *Engine) alphabetName(fl playground.FieldLevel) bool {
	return e.NameMatches(fl.Field().String())
}

func (e *Engine) yearRange(fl playground.FieldLevel) bool {
	year := fl.Field().Int()
	return year >= MinYear && year <= int64(e.CurrentYear())
}

func matchString(rx *regexp.Regexp) playground.Func {
	return func(fl playground.FieldLevel) bool {
		return rx.MatchString(fl.Field().String())
	}
}

// between checks a numeric field against an inclusive "lo hi" range.
func between(fl playground.FieldLevel) bool {
	lo, hi, ok := strings.Cut(fl.Param(), " ")
	if !ok {
		return false
	}
	low, err := strconv.ParseFloat(lo, 64)
	if err != nil {
		return false
	}
	high, err := strconv.ParseFloat(hi, 64)
	if err != nil {
		return false
	}

	var n float64
	field := fl.Field()
	switch field.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n = float64(field.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n = float64(field.Uint())
	case reflect.Float32, reflect.Float64:
		n = field.Float()
	default:
		return false
	}
	return n >= low && n <= high
}

// NormalizeName trims a person's name and converts it to NFC so that letters
// typed with combining marks match their precomposed forms.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// Label turns a json field name into a sentence label: "copies_total" ->
// "Copies total".
func Label(field string) string {
	s := strings.ReplaceAll(field, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
