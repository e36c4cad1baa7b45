package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// OAuth errors
	ErrExchangeFailed = fmt.Errorf("token exchange failed")
	ErrProviderDenied = fmt.Errorf("provider reported an authorization error")
	ErrMissingCode    = fmt.Errorf("no code provided")
	ErrMissingState   = fmt.Errorf("no state provided")
	ErrMalformedState = fmt.Errorf("invalid state provided")

	// API errors
	ErrAPIRequest = fmt.Errorf("API request failed")
)
