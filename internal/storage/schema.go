package storage

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Kind is the JSON type a field accepts.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindBool
)

// Field maps one JSON key to one column.
//
// Create and Update are the allow-lists: a field that is not marked
// is ignored even if the request body carries it. Rules is a
// go-playground/validator tag applied to non-null values.
type Field struct {
	Name     string
	Column   string
	Kind     Kind
	Rules    string
	Required bool
	Nullable bool
	Create   bool
	Update   bool
}

// Schema describes a table: its name, primary key and fields. Column
// names only ever come from a Schema, never from a request.
type Schema struct {
	Table  string
	Key    string
	Fields []Field
}

// Fields is a decoded JSON object as received from a client.
type Fields map[string]any

// Values is an ordered column list with matching arguments, ready to be
// turned into an INSERT column list or an UPDATE SET clause.
type Values struct {
	Columns []string
	Args    []any
}

func (v Values) Empty() bool {
	return len(v.Columns) == 0
}

func (v *Values) add(column string, arg any) {
	v.Columns = append(v.Columns, column)
	v.Args = append(v.Args, arg)
}

// ValidationError lists every problem found in a request body.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Problems, ", ")
}

// NewValidationError builds a ValidationError from preformatted problems.
func NewValidationError(problems ...string) *ValidationError {
	return &ValidationError{Problems: problems}
}

var validate = validator.New()

// Columns returns the key followed by every field column, the order in
// which rows of this table are selected and scanned.
func (s *Schema) Columns() []string {
	cols := make([]string, 0, len(s.Fields)+1)
	cols = append(cols, s.Key)
	for _, f := range s.Fields {
		cols = append(cols, f.Column)
	}
	return cols
}

// Insert picks the declared create fields out of in. Required fields
// must be present; absent optional fields are left to the column default.
func (s *Schema) Insert(in Fields) (Values, error) {
	var (
		out      Values
		problems []string
	)
	for _, f := range s.Fields {
		if !f.Create {
			continue
		}
		raw, ok := in[f.Name]
		if !ok || (raw == nil && f.Required) {
			if f.Required {
				problems = append(problems, fmt.Sprintf("field %s is required", f.Name))
			}
			continue
		}
		v, err := f.normalize(raw, f.Required)
		if err != nil {
			problems = append(problems, err.Error())
			continue
		}
		out.add(f.Column, v)
	}
	if len(problems) > 0 {
		return Values{}, &ValidationError{Problems: problems}
	}
	return out, nil
}

// Assignments picks the allow-listed update fields present in in. An
// empty result is not an error here; callers decide whether that is
// acceptable for their entity.
func (s *Schema) Assignments(in Fields) (Values, error) {
	var (
		out      Values
		problems []string
	)
	for _, f := range s.Fields {
		if !f.Update {
			continue
		}
		raw, ok := in[f.Name]
		if !ok {
			continue
		}
		v, err := f.normalize(raw, f.Required)
		if err != nil {
			problems = append(problems, err.Error())
			continue
		}
		out.add(f.Column, v)
	}
	if len(problems) > 0 {
		return Values{}, &ValidationError{Problems: problems}
	}
	return out, nil
}

// maxExactInt is the largest magnitude a float64 holds without losing
// integer precision.
const maxExactInt = 1 << 53

// normalize converts a decoded JSON value into the Go value bound to the
// column. encoding/json decodes every number as float64, so integers are
// checked for a fractional part and for range here.
func (f Field) normalize(raw any, nonEmpty bool) (any, error) {
	if raw == nil {
		if !f.Nullable {
			return nil, fmt.Errorf("field %s cannot be null", f.Name)
		}
		return nil, nil
	}

	var v any
	switch f.Kind {
	case KindString:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("field %s must be a string", f.Name)
		}
		if nonEmpty && strings.TrimSpace(s) == "" {
			return nil, fmt.Errorf("field %s is required", f.Name)
		}
		v = s
	case KindInt:
		n, ok := raw.(float64)
		if !ok || n != math.Trunc(n) || math.Abs(n) > maxExactInt {
			return nil, fmt.Errorf("field %s must be an integer", f.Name)
		}
		v = int64(n)
	case KindBool:
		b, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("field %s must be a boolean", f.Name)
		}
		v = b
	default:
		return nil, fmt.Errorf("field %s has unsupported kind %d", f.Name, f.Kind)
	}

	if f.Rules != "" {
		if err := validate.Var(v, f.Rules); err != nil {
			return nil, f.describe(err)
		}
	}
	return v, nil
}

func (f Field) describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("field %s is invalid", f.Name)
	}
	e := verrs[0]
	switch e.ActualTag() {
	case "datetime":
		return fmt.Errorf("field %s must be a date (YYYY-MM-DD)", f.Name)
	case "min":
		return fmt.Errorf("field %s must be at least %s", f.Name, e.Param())
	case "max":
		return fmt.Errorf("field %s must be at most %s", f.Name, e.Param())
	default:
		return fmt.Errorf("field %s is invalid", f.Name)
	}
}
