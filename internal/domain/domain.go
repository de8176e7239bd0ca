package domain

import "errors"

var (
	ErrListingNotFound   = errors.New("listing not found")
	ErrListingIneligible = errors.New("listing is not approved")
	ErrMissingCoordinate = errors.New("listing has no coordinate")
	ErrNoRecipient       = errors.New("user has no recipient address")
)
