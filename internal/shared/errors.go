package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")
	ErrMissingToken  = fmt.Errorf("missing bot token")

	// Inbound event errors
	ErrInvalidSignature = fmt.Errorf("invalid request signature")
	ErrStaleRequest     = fmt.Errorf("request timestamp outside replay window")

	// Resolution errors
	ErrNoCandidate = fmt.Errorf("no supported link found")
	ErrRemote      = fmt.Errorf("equivalence lookup failed")
	ErrEmptyResult = fmt.Errorf("equivalence lookup returned no links")

	// Delivery errors
	ErrDelivery   = fmt.Errorf("message delivery failed")
	ErrNotInvited = fmt.Errorf("bot not in channel")
)
