package events

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/localhub/server/internal/sanitize"
	dateparser "github.com/markusmobius/go-dateparser"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Input is the set of event attributes accepted from a submission form or an
// update body. Date stays a string so both ISO values and free-form dates
// ("next friday 7pm", "12 March 2026") can be accepted.
type Input struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=5000"`
	Location    string `json:"location" validate:"max=300"`
	Category    string `json:"category" validate:"max=100"`
	Date        string `json:"date" validate:"required"`
}

// UpdateInput mirrors Input with every field optional.
type UpdateInput struct {
	Title       *string `json:"title,omitempty" validate:"omitnil,min=1,max=200"`
	Description *string `json:"description,omitempty" validate:"omitnil,max=5000"`
	Location    *string `json:"location,omitempty" validate:"omitnil,max=300"`
	Category    *string `json:"category,omitempty" validate:"omitnil,max=100"`
	Date        *string `json:"date,omitempty"`
	Image       *string `json:"image,omitempty" validate:"omitnil,url"`
	Status      *string `json:"status,omitempty"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (in Input) normalize() Input {
	return Input{
		Title:       sanitize.Text(in.Title),
		Description: sanitize.HTML(in.Description),
		Location:    sanitize.Text(in.Location),
		Category:    sanitize.Text(in.Category),
		Date:        strings.TrimSpace(in.Date),
	}
}

// ValidateInput sanitizes and validates a submission and parses its date.
func ValidateInput(in Input, now time.Time) (Input, time.Time, error) {
	in = in.normalize()
	if err := structError(validate.Struct(in)); err != nil {
		return in, time.Time{}, err
	}
	date, err := ParseDate(in.Date, now)
	if err != nil {
		return in, time.Time{}, err
	}
	return in, date, nil
}

// ToParams validates an update body and converts it to repository params.
// Status is checked for shape only; whether the caller may set it is
// decided by the service.
func (in UpdateInput) ToParams(now time.Time) (UpdateParams, error) {
	if err := structError(validate.Struct(in)); err != nil {
		return UpdateParams{}, err
	}
	params := UpdateParams{
		Title:       sanitize.TextPtr(in.Title),
		Description: sanitize.HTMLPtr(in.Description),
		Location:    sanitize.TextPtr(in.Location),
		Category:    sanitize.TextPtr(in.Category),
		Image:       trimPtr(in.Image),
	}
	if params.Title != nil && *params.Title == "" {
		return UpdateParams{}, ValidationError{Field: "title", Message: "must not be empty"}
	}
	if in.Date != nil {
		date, err := ParseDate(*in.Date, now)
		if err != nil {
			return UpdateParams{}, err
		}
		params.Date = &date
	}
	if in.Status != nil {
		status := Status(strings.ToLower(strings.TrimSpace(*in.Status)))
		if !status.Valid() {
			return UpdateParams{}, fmt.Errorf("%w: %q", ErrInvalidStatus, *in.Status)
		}
		params.Status = &status
	}
	if params.Empty() {
		return UpdateParams{}, ValidationError{Message: "no updatable fields provided"}
	}
	return params, nil
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseDate accepts RFC 3339 and HTML form date layouts, falling back to
// natural-language parsing relative to now.
func ParseDate(raw string, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, ValidationError{Field: "date", Message: "is required"}
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed.UTC(), nil
		}
	}
	parsed, err := dateparser.Parse(&dateparser.Configuration{CurrentTime: now}, raw)
	if err != nil || parsed.Time.IsZero() {
		return time.Time{}, ValidationError{Field: "date", Message: fmt.Sprintf("could not parse %q", raw)}
	}
	return parsed.Time.UTC(), nil
}

func structError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return ValidationError{Field: field, Message: "is required"}
	case "max":
		return ValidationError{Field: field, Message: fmt.Sprintf("must be at most %s characters", fe.Param())}
	case "min":
		return ValidationError{Field: field, Message: "must not be empty"}
	case "url":
		return ValidationError{Field: field, Message: "must be a valid URL"}
	default:
		return ValidationError{Field: field, Message: "failed " + fe.Tag()}
	}
}

func trimPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	return &trimmed
}
