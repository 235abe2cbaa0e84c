// internal/market/errors.go
package market

import "fmt"

// UnsupportedCityError rejects a city missing from the allow-list. It is a
// user-input error: surfaced immediately, never retried, and raised before
// any scrape is attempted.
type UnsupportedCityError struct {
	// City is the rejected name, capitalized for display.
	City string
}

func (e *UnsupportedCityError) Error() string {
	return fmt.Sprintf("%s is not a city we are currently supporting on the Facebook Marketplace. Please reach out to us to add this city in our directory.", e.City)
}

// NewUnsupportedCityError builds the error with the display capitalization
// applied.
func NewUnsupportedCityError(city string) *UnsupportedCityError {
	return &UnsupportedCityError{City: CapitalizeCity(city)}
}
