package builder

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/image/colornames"
)

// DateLayout is the layout of date filters and rendered date cells
const DateLayout = "2006-01-02"

var (
	hexColorPattern = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
	fontPattern     = regexp.MustCompile(`^[A-Za-z0-9 \-]{1,64}$`)
)

// Validator validates report configuration values
type Validator struct {
	designer *ReportDesigner
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult contains the result of validation
type ValidationResult struct {
	IsValid bool              `json:"is_valid"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

// NewValidator creates a new validator
func NewValidator(designer *ReportDesigner) *Validator {
	return &Validator{
		designer: designer,
	}
}

// ValidateFields reports every selected field that is not on the allow-list
func (v *Validator) ValidateFields(source string, fields []string, result *ValidationResult) {
	ds, err := v.designer.GetDataSource(source)
	if err != nil {
		result.addError("fields", "invalid", err.Error())
		return
	}
	for i, f := range fields {
		if !ds.HasField(f) {
			result.addError(fmt.Sprintf("fields[%d]", i), "unknown", fmt.Sprintf("Field '%s' is not selectable", f))
		}
	}
}

// ValidateFilters checks the date filters, which have no safe default
func (v *Validator) ValidateFilters(filters Filters, result *ValidationResult) {
	from, okFrom := v.validateDate("filters.date_from", filters.DateFrom, result)
	to, okTo := v.validateDate("filters.date_to", filters.DateTo, result)
	if okFrom && okTo && !from.IsZero() && !to.IsZero() && from.After(to) {
		result.addError("filters.date_to", "invalid", "date_to must not be before date_from")
	}
}

func (v *Validator) validateDate(field string, value *string, result *ValidationResult) (time.Time, bool) {
	if value == nil || *value == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(DateLayout, *value)
	if err != nil {
		result.addError(field, "invalid", fmt.Sprintf("Date must use the YYYY-MM-DD format, got '%s'", *value))
		return time.Time{}, false
	}
	return t, true
}

// ValidateStyle checks the style tokens
func (v *Validator) ValidateStyle(font string, fontSize int, headerColor, bgColor string, result *ValidationResult) {
	if !IsValidFont(font) {
		result.addError("font", "invalid", fmt.Sprintf("Unsupported font '%s'", font))
	}
	if fontSize <= 0 {
		result.addError("font_size", "invalid", "Font size must be positive")
	}
	if !IsValidColor(headerColor) {
		result.addError("header_color", "invalid", fmt.Sprintf("Unknown color '%s'", headerColor))
	}
	if !IsValidColor(bgColor) {
		result.addError("bg_color", "invalid", fmt.Sprintf("Unknown color '%s'", bgColor))
	}
}

// IsValidColor accepts an SVG color name or a #rgb / #rrggbb hex token
func IsValidColor(token string) bool {
	if hexColorPattern.MatchString(token) {
		return true
	}
	_, ok := colornames.Map[strings.ToLower(token)]
	return ok
}

// IsValidFont accepts plain family names such as "Times New Roman"
func IsValidFont(font string) bool {
	return fontPattern.MatchString(font)
}

// HasErrorFor reports whether field has at least one error
func (r *ValidationResult) HasErrorFor(field string) bool {
	for _, e := range r.Errors {
		if e.Field == field {
			return true
		}
	}
	return false
}

// Error joins the messages so a result can be returned as an error
func (r *ValidationResult) Error() string {
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return strings.Join(msgs, "; ")
}

func (r *ValidationResult) addError(field, code, message string) {
	r.IsValid = false
	r.Errors = append(r.Errors, ValidationError{
		Field:   field,
		Code:    code,
		Message: message,
	})
}
