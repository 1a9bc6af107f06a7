// Package request decodes and validates incoming HTTP requests.
package request

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/institute-api/internal/auth"
	"github.com/aanand-mishra/institute-api/internal/storage"
)

// MaxBodyBytes caps every JSON body.
const MaxBodyBytes = 1 << 20

var ErrEmptyBody = errors.New("request body is empty")

// validate reports field names by their json tag, so messages match what
// the client sent ("field firstname is required").
//
// Custom tags:
//
//	notblank → string is not empty after trimming spaces
//	password → string fits in bcrypt's input limit (counted in bytes)
var validate = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= auth.MaxPasswordBytes
	})
	return v
}()

// DecodeJSON reads the body into dst. An empty body is ErrEmptyBody.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes)).Decode(dst)
	if errors.Is(err, io.EOF) {
		return ErrEmptyBody
	}
	if err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}

// DecodeFields reads the body as a JSON object for schema-driven handlers.
func DecodeFields(w http.ResponseWriter, r *http.Request) (storage.Fields, error) {
	var in storage.Fields
	if err := DecodeJSON(w, r, &in); err != nil {
		return nil, err
	}
	if in == nil {
		return nil, errors.New("invalid json: body must be an object")
	}
	return in, nil
}

// Validate checks validate:"..." tags on v. The error, if any, is a
// validator.ValidationErrors.
func Validate(v any) error {
	return validate.Struct(v)
}

// ID parses the {id} path value as a positive integer.
func ID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id: must be a positive integer")
	}
	return id, nil
}
