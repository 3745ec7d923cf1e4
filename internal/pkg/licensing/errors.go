package licensing

import "errors"

// Sentinel errors of the license lifecycle. Controllers map these onto HTTP
// status codes; everything else surfaces as an internal error.
var (
	// ErrLicenseNotFound means no main license or sub-license matches the key.
	ErrLicenseNotFound = errors.New("license key not found")

	// ErrLicenseInactive means the key exists but has been deactivated, or a
	// sub-license's parent key is inactive.
	ErrLicenseInactive = errors.New("license key is not active")

	// ErrAlreadyClaimed means the redeem code was claimed before, by any user.
	ErrAlreadyClaimed = errors.New("redeem code already claimed")

	// ErrCodeNotFound means the redeem code does not exist.
	ErrCodeNotFound = errors.New("redeem code not found")

	// ErrSeatLimitReached means the main license has no free sub-license seat.
	ErrSeatLimitReached = errors.New("no free sub-license seat available")

	// ErrKeyAlreadyActivated means an AppSumo key is already active and
	// linked to an account.
	ErrKeyAlreadyActivated = errors.New("license key already activated")

	// ErrNotLicenseOwner means the caller is not linked to the license key
	// they tried to manage.
	ErrNotLicenseOwner = errors.New("caller does not own this license key")

	// ErrTransactionTimeout means a redeem phase did not finish within its
	// time budget. The client may retry.
	ErrTransactionTimeout = errors.New("transaction timed out")
)
