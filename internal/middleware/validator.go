package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New()

// RequestError is a client mistake; the router maps it to 400.
type RequestError struct {
	Msg string
}

func (e *RequestError) Error() string { return e.Msg }

// DecodeJSON decodes a size-limited JSON body into dst and validates its
// `validate` tags.
func DecodeJSON(r *http.Request, limit int64, dst any) error {
	body := io.LimitReader(r.Body, limit)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &RequestError{Msg: fmt.Sprintf("invalid JSON body: %v", err)}
	}
	return ValidateStruct(dst)
}

// ValidateStruct turns validator failures into a RequestError naming the fields.
func ValidateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return &RequestError{Msg: "invalid fields: " + strings.Join(fields, ", ")}
}

// ValidateSessionID accepts only UUIDs.
func ValidateSessionID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return &RequestError{Msg: "invalid session id"}
	}
	return nil
}

// SanitizeString removes null bytes and control characters other than tab and newline.
func SanitizeString(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}

// ValidatePage validates a 1-based page number.
func ValidatePage(page int) int {
	if page <= 0 {
		return 1
	}
	return page
}
