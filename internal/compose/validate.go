package compose

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/models"
)

type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists every problem found before submission. No request
// is sent when validation fails.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return strings.Join(msgs, " ")
}

// Has reports whether field failed validation.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// Validate checks d. captcha tells whether a challenge is in effect.
func Validate(d Draft, captcha bool) error {
	var errs []FieldError
	add := func(field, msg string) { errs = append(errs, FieldError{field, msg}) }

	if d.Type() != models.TypeQuote && strings.TrimSpace(d.Title) == "" {
		add("title", "Title is required.")
	}
	switch c := d.Content.(type) {
	case Quote:
		if strings.TrimSpace(c.Text) == "" {
			add("quote", "Quote text is required.")
		}
	case Link:
		u := strings.TrimSpace(c.URL)
		if u == "" {
			add("url", "URL is required for link posts.")
		} else if !validLink(u) {
			add("url", "Please enter a valid URL.")
		}
	}
	if d.CategoryID == 0 {
		add("category", "Please choose a category.")
	}
	if utf8.RuneCountInString(d.License) > MaxLicenseLen {
		add("license", "License must be at most 255 characters.")
	}
	if captcha && strings.TrimSpace(d.CaptchaAnswer) == "" {
		add("captcha", "Please answer the CAPTCHA.")
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func validLink(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
