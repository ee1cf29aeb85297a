package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Call failure kinds. [models.Failure] unwraps to one of these.
	ErrTransport          = fmt.Errorf("transport failure")
	ErrRejected           = fmt.Errorf("request rejected by service")
	ErrSessionExpired     = fmt.Errorf("session expired")
	ErrEntityVanished     = fmt.Errorf("entity vanished")
	ErrUnknownDerivation  = fmt.Errorf("unknown derivation")
	ErrDuplicateStepOrder = fmt.Errorf("duplicate step order")
	ErrUnsatisfied        = fmt.Errorf("verification unsatisfied")

	// Taxonomy errors
	ErrUnclassifiedField = fmt.Errorf("unclassified metadata field")
	ErrInvalidFieldType  = fmt.Errorf("invalid metadata field type")
	ErrInvalidTaxonomy   = fmt.Errorf("invalid taxonomy")

	// Service errors
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")
	ErrTrackNotFound      = fmt.Errorf("track not found")

	// Persistence errors
	ErrDatabase       = fmt.Errorf("database unavailable")
	ErrRecordNotFound = fmt.Errorf("record not found or already deleted")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
