// Package validate checks write payloads against the field registry in
// internal/schema. Checks run in a fixed order and stop at the first failure,
// so a given payload always fails for the same reason.
package validate

import (
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/AlexanderPuhl/vehicle-stats-tracker-server-sub000/internal/schema"
)

// ErrorKind identifies which check rejected a payload.
type ErrorKind int

const (
	UnknownField ErrorKind = iota + 1
	MissingField
	NotUpdateable
	TypeMismatch
	NotPositive
	NotTrimmed
	TooShort
	TooLong
)

func (k ErrorKind) String() string {
	switch k {
	case UnknownField:
		return "UnknownField"
	case MissingField:
		return "MissingField"
	case NotUpdateable:
		return "NotUpdateable"
	case TypeMismatch:
		return "TypeMismatch"
	case NotPositive:
		return "NotPositive"
	case NotTrimmed:
		return "NotTrimmed"
	case TooShort:
		return "TooShort"
	case TooLong:
		return "TooLong"
	}
	return "Unknown"
}

// Error is the single violation reported for a payload.
type Error struct {
	Kind     ErrorKind
	Field    string
	Expected schema.Kind // TypeMismatch only
	Limit    int         // TooShort / TooLong only
}

func (e *Error) Error() string {
	switch e.Kind {
	case UnknownField:
		return "Unexpected field: " + e.Field
	case MissingField:
		return "Missing field: " + e.Field
	case NotUpdateable:
		return "Field cannot be updated: " + e.Field
	case TypeMismatch:
		return fmt.Sprintf("Incorrect field type: expected %s: %s", e.Expected, e.Field)
	case NotPositive:
		return "Must be a positive number: " + e.Field
	case NotTrimmed:
		return "Cannot start or end with whitespace: " + e.Field
	case TooShort:
		return fmt.Sprintf("Must be at least %d characters long: %s", e.Limit, e.Field)
	case TooLong:
		return fmt.Sprintf("Must be at most %d characters long: %s", e.Limit, e.Field)
	}
	return "Invalid field: " + e.Field
}

// Status is the HTTP status for the violation: 400 when the request names
// fields it may not send, 422 when the payload is well formed but invalid.
func (e *Error) Status() int {
	if e.Kind == UnknownField || e.Kind == NotUpdateable {
		return http.StatusBadRequest
	}
	return http.StatusUnprocessableEntity
}

// Validate checks input for op on res and returns it unchanged when valid.
func Validate(res *schema.Resource, op schema.Operation, input map[string]any) (map[string]any, error) {
	keys := sortedKeys(input)

	for _, k := range keys {
		if !res.Has(k) {
			return nil, &Error{Kind: UnknownField, Field: k}
		}
	}

	for _, name := range res.RequiredFields(op) {
		if _, ok := input[name]; !ok {
			return nil, &Error{Kind: MissingField, Field: name}
		}
	}

	if op == schema.Update {
		for _, k := range keys {
			if f, _ := res.Field(k); !f.Updateable {
				return nil, &Error{Kind: NotUpdateable, Field: k}
			}
		}
	}

	present := presentFields(res, input)

	for _, f := range present {
		if f.Kind != schema.Number {
			continue
		}
		if _, ok := numericValue(input[f.Name]); !ok {
			return nil, &Error{Kind: TypeMismatch, Field: f.Name, Expected: schema.Number}
		}
	}
	for _, f := range present {
		if f.Kind != schema.Number {
			continue
		}
		if v, _ := numericValue(input[f.Name]); !(v > 0) {
			return nil, &Error{Kind: NotPositive, Field: f.Name}
		}
	}

	for _, f := range present {
		if f.Kind != schema.String {
			continue
		}
		if _, ok := input[f.Name].(string); !ok {
			return nil, &Error{Kind: TypeMismatch, Field: f.Name, Expected: schema.String}
		}
	}
	for _, f := range present {
		if f.Kind != schema.String {
			continue
		}
		s := input[f.Name].(string)
		if strings.TrimSpace(s) != s {
			return nil, &Error{Kind: NotTrimmed, Field: f.Name}
		}
	}
	for _, f := range present {
		if f.Kind != schema.String || f.Size == nil || f.Size.Min == 0 {
			continue
		}
		if utf8.RuneCountInString(input[f.Name].(string)) < f.Size.Min {
			return nil, &Error{Kind: TooShort, Field: f.Name, Limit: f.Size.Min}
		}
	}
	for _, f := range present {
		if f.Kind != schema.String || f.Size == nil || f.Size.Max == 0 {
			continue
		}
		if maxLength(f.Size, input[f.Name].(string)) > f.Size.Max {
			return nil, &Error{Kind: TooLong, Field: f.Name, Limit: f.Size.Max}
		}
	}

	return input, nil
}

// maxLength measures s in the unit the upper bound is declared in.
func maxLength(b *schema.Bounds, s string) int {
	if b.Bytes {
		return len(s)
	}
	return utf8.RuneCountInString(s)
}

// presentFields returns the specs of the fields present in input, in
// registry order.
func presentFields(res *schema.Resource, input map[string]any) []schema.FieldSpec {
	var out []schema.FieldSpec
	for _, f := range res.Fields() {
		if _, ok := input[f.Name]; ok {
			out = append(out, f)
		}
	}
	return out
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// numericValue reports whether v holds a number and returns it as float64.
// json.Number counts as numeric; plain strings never do.
func numericValue(v any) (float64, bool) {
	if n, ok := v.(json.Number); ok {
		f, err := n.Float64()
		return f, err == nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}
