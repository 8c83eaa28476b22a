package store

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
)

var ErrInvalid = errors.New("invalid message")

const (
	OpAtLeast = ">="
	OpAtMost  = "<="
)

var regionPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Validate checks a message before it is written.
func (m *Message) Validate() error {
	if m.Title == "" {
		return invalid("title is required")
	}
	if !regionPattern.MatchString(m.Region) {
		return invalid("region %q must be lowercase letters, digits, '_' or '-'", m.Region)
	}

	switch m.Type {
	case TypeImage, TypeEditor, TypeBanner:
	default:
		return invalid("unknown type %q (want image, editor or banner)", m.Type)
	}

	switch m.Status {
	case StatusDraft, StatusPublished:
	default:
		return invalid("unknown status %q", m.Status)
	}

	for _, c := range m.Conditionals {
		if !slices.Contains(Conditionals, c) {
			return invalid("unknown conditional %q", c)
		}
	}

	if len(m.ScreenSizes) == 0 {
		return invalid("at least one screen size is required")
	}
	for i, size := range m.ScreenSizes {
		if err := size.validate(m.Type); err != nil {
			return invalid("screen size %d: %v", i, err)
		}
	}

	if m.Session != nil {
		if m.Session.Operator != OpAtLeast && m.Session.Operator != OpAtMost {
			return invalid("session operator %q must be %s or %s", m.Session.Operator, OpAtLeast, OpAtMost)
		}
		if m.Session.Threshold < 0 {
			return invalid("session threshold must not be negative")
		}
	}

	if m.DismissDays < 0 || m.DismissHours < 0 {
		return invalid("dismiss expiry must not be negative")
	}

	if m.StartsAt != nil && m.EndsAt != nil && !m.EndsAt.After(*m.StartsAt) {
		return invalid("end time must be after start time")
	}

	return nil
}

func (s ScreenSize) validate(t MessageType) error {
	if s.MinWidth != nil && *s.MinWidth < 0 {
		return fmt.Errorf("min width must not be negative")
	}
	if s.MaxWidth != nil && *s.MaxWidth < 0 {
		return fmt.Errorf("max width must not be negative")
	}
	if s.MinWidth != nil && s.MaxWidth != nil && *s.MinWidth > *s.MaxWidth {
		return fmt.Errorf("min width %d exceeds max width %d", *s.MinWidth, *s.MaxWidth)
	}

	switch t {
	case TypeImage:
		if s.ImageURL == "" {
			return fmt.Errorf("image message needs an image url")
		}
	default:
		if s.Content == "" {
			return fmt.Errorf("%s message needs content", t)
		}
	}

	if s.Button != nil && (s.Button.Text == "" || s.Button.URL == "") {
		return fmt.Errorf("button needs text and url")
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}
