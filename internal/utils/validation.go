package utils

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

var (
	// Route ids look like B46, M15+, Q44-SBS or BX12.
	validIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_.+-]+$`)

	// Borough keys are ids (staten-island) or display names (Staten Island).
	validBoroughPattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z -]*$`)

	htmlTagPattern = regexp.MustCompile(`<[^>]*>`)
)

// ValidateID validates that an ID is safe and within reasonable limits
func ValidateID(id string) error {
	if id == "" {
		return errors.New("id cannot be empty")
	}

	if len(id) > 32 {
		return errors.New("id too long (max 32 characters)")
	}

	if !validIDPattern.MatchString(id) {
		return errors.New("id contains invalid characters")
	}

	return nil
}

// ValidateBorough checks the shape of a borough path segment.
func ValidateBorough(borough string) error {
	if borough == "" {
		return errors.New("borough cannot be empty")
	}
	if len(borough) > 32 || !validBoroughPattern.MatchString(borough) {
		return errors.New("borough contains invalid characters")
	}
	return nil
}

// ValidateDate validates date strings in YYYY-MM-DD format
func ValidateDate(date string) error {
	if date == "" {
		return nil
	}

	_, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return errors.New("invalid date format, use YYYY-MM-DD")
	}

	return nil
}

// ValidateHour validates an hour of day.
func ValidateHour(hour int) error {
	if hour < 0 || hour > 23 {
		return errors.New("hour must be between 0 and 23")
	}
	return nil
}

// SanitizeInput removes HTML tags and surrounding whitespace.
func SanitizeInput(input string) string {
	sanitized := htmlTagPattern.ReplaceAllString(input, "")
	return strings.TrimSpace(sanitized)
}
