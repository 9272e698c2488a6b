package bundle

import "errors"

var (
	// ErrMissingIdentifier is returned when an update, delete or read
	// operation carries no resource identifier.
	ErrMissingIdentifier = errors.New("sheaf: operation requires a resource identifier")

	// ErrUnknownVersion is returned when a delete or read names an
	// identifier absent from the supplied version map.
	ErrUnknownVersion = errors.New("sheaf: no known version for resource identifier")

	// ErrUnknownOperation is returned when a bundle entry carries an
	// operation kind outside create/update/delete/read.
	ErrUnknownOperation = errors.New("sheaf: unrecognized bundle operation")

	// ErrMissingReadResult is returned when a read placeholder has no
	// corresponding raw result. The staged lock existed but the row
	// vanished before the read completed; the whole bundle must abort.
	ErrMissingReadResult = errors.New("sheaf: staged read returned no result")
)
