package utils

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ParseIntParam retrieves an integer from the query parameters and checks
// it with validate when one is given. A missing key yields nil; an invalid
// value yields nil and a field error.
func ParseIntParam(params url.Values, key string, validate func(int) error, fieldErrors map[string][]string) (*int, map[string][]string) {
	if fieldErrors == nil {
		fieldErrors = make(map[string][]string)
	}

	val := strings.TrimSpace(params.Get(key))
	if val == "" {
		return nil, fieldErrors
	}

	i, err := strconv.Atoi(val)
	if err != nil {
		fieldErrors[key] = append(fieldErrors[key], fmt.Sprintf("Invalid field value for field %q.", key))
		return nil, fieldErrors
	}
	if validate != nil {
		if err := validate(i); err != nil {
			fieldErrors[key] = append(fieldErrors[key], err.Error())
			return nil, fieldErrors
		}
	}
	return &i, fieldErrors
}

// ParseStringParam retrieves a sanitized string and checks it with validate.
func ParseStringParam(params url.Values, key string, validate func(string) error, fieldErrors map[string][]string) (string, map[string][]string) {
	if fieldErrors == nil {
		fieldErrors = make(map[string][]string)
	}

	val := SanitizeInput(params.Get(key))
	if val == "" || validate == nil {
		return val, fieldErrors
	}
	if err := validate(val); err != nil {
		fieldErrors[key] = append(fieldErrors[key], err.Error())
	}
	return val, fieldErrors
}
