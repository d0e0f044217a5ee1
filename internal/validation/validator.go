package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// Errors maps a JSON field path to the reason it failed.
type Errors map[string]string

func (e Errors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

var apiKeyPattern = regexp.MustCompile(`^rm_[a-f0-9]{64}$`)

// ValidAPIKeyFormat reports whether s has the rm_ prefix and a 64 char lowercase hex body.
func ValidAPIKeyFormat(s string) bool {
	return apiKeyPattern.MatchString(s)
}

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = validate.RegisterValidation("apikey", func(fl validator.FieldLevel) bool {
		return ValidAPIKeyFormat(fl.Field().String())
	})
	validate.RegisterStructValidation(credentialsPresent, Auth{})
}

// credentialsPresent rejects payloads that carry neither a user id nor an API key.
func credentialsPresent(sl validator.StructLevel) {
	a := sl.Current().Interface().(Auth)
	if a.UserID == nil && a.APIKey == nil {
		sl.ReportError(a.UserID, "user_id", "UserID", "credentials", "")
	}
}

var messages = map[string]string{
	"required":    "is required",
	"credentials": "Either user_id or api_key must be provided",
	"gte":         "must be greater than or equal to %s",
	"lte":         "must be less than or equal to %s",
	"gt":          "must be greater than %s",
	"min":         "must be at least %s characters long",
	"max":         "must be no longer than %s characters",
	"uuid":        "must be a valid UUID",
	"apikey":      "must be a valid API key",
	"datetime":    "must be an ISO 8601 timestamp",
	"oneof":       "must be one of [%s]",
}

func message(e validator.FieldError) string {
	msg, ok := messages[e.Tag()]
	if !ok {
		return "is invalid: " + e.Tag()
	}
	if strings.Contains(msg, "%s") {
		return fmt.Sprintf(msg, e.Param())
	}
	return msg
}

// Struct validates v and returns Errors, or nil when v is valid.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := make(Errors, len(verrs))
	for _, e := range verrs {
		field := fieldPath(e)
		if _, seen := out[field]; seen {
			continue
		}
		out[field] = message(e)
	}
	return out
}

// fieldPath is the dotted JSON path of e. The root type and embedded structs
// carry Go names in the namespace and are dropped.
func fieldPath(e validator.FieldError) string {
	segs := strings.Split(e.Namespace(), ".")
	path := make([]string, 0, len(segs))
	for _, s := range segs[1:] {
		if s == "" || unicode.IsUpper(rune(s[0])) {
			continue
		}
		path = append(path, s)
	}
	if len(path) == 0 {
		return e.Field()
	}
	return strings.Join(path, ".")
}

// FromDecodeError turns a JSON decoding failure into field level Errors.
func FromDecodeError(err error) Errors {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return Errors{typeErr.Field: "must be of type " + typeErr.Type.String()}
	}
	return Errors{"body": "must be a valid JSON object"}
}
