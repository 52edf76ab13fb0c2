// Package apperror provides utilities to handle and map custom validation errors.
package apperror

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var (
	errRequired        = errors.New("is required")
	errMustBePositive  = errors.New("must be a positive number")
	errTitleTooShort   = errors.New("must be at least 2 characters long")
	errInvalidEmail    = errors.New("must be a valid email address")
	errInvalidPhone    = errors.New("must contain at least 7 digits")
	errInvalidURL      = errors.New("must be a valid URL")
	errInvalidCurrency = errors.New("must be a valid ISO 4217 currency code")
	errAtLeastOneItem  = errors.New("must contain at least one item")
)

var customErrors = map[string]error{
	"TrackRequest.Email.email":                      errInvalidEmail,
	"TrackRequest.Phone.phonedigits":                errInvalidPhone,
	"TrackRequest.SourceURL.url":                    errInvalidURL,
	"ProductRequest.TrackRequest.Email.email":       errInvalidEmail,
	"ProductRequest.TrackRequest.Phone.phonedigits": errInvalidPhone,
	"ProductRequest.TrackRequest.SourceURL.url":     errInvalidURL,
	"ProductRequest.ProductID.required":             errRequired,
	"ProductRequest.ProductTitle.required":          errRequired,
	"ProductRequest.ProductTitle.min":               errTitleTooShort,
	"ProductRequest.Quantity.gte":                   errMustBePositive,
	"ProductRequest.Value.required":                 errRequired,
	"ProductRequest.Value.gt":                       errMustBePositive,
	"ProductRequest.Currency.required":              errRequired,
	"ProductRequest.Currency.iso4217":               errInvalidCurrency,
	"CartRequest.TrackRequest.Email.email":          errInvalidEmail,
	"CartRequest.TrackRequest.Phone.phonedigits":    errInvalidPhone,
	"CartRequest.TrackRequest.SourceURL.url":        errInvalidURL,
	"CartRequest.ContentIDs.required":               errRequired,
	"CartRequest.ContentIDs.min":                    errAtLeastOneItem,
	"CartRequest.Value.required":                    errRequired,
	"CartRequest.Value.gt":                          errMustBePositive,
	"CartRequest.Currency.required":                 errRequired,
	"CartRequest.Currency.iso4217":                  errInvalidCurrency,
	"CartRequest.NumItems.required":                 errRequired,
	"CartRequest.NumItems.gte":                      errMustBePositive,
}

// CustomValidationError converts validator errors into a standardized format.
func CustomValidationError(err error) []map[string]string {
	errList := make([]map[string]string, 0)

	var validationErr validator.ValidationErrors

	switch {
	case errors.As(err, &validationErr):
		for _, e := range validationErr {
			field := e.StructNamespace()
			key := field + "." + e.Tag()

			errMsg := fmt.Sprintf("%s is invalid", field)
			if v, ok := customErrors[key]; ok {
				errMsg = v.Error()
			}

			errList = append(errList, map[string]string{e.Field(): errMsg})
		}
	}
	return errList
}
