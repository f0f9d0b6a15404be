package ezimage

import "errors"

// Client error taxonomy.  Callers should test with errors.Is since the
// functions in this library wrap these sentinels with call-site detail.
var (
	// ErrInvalidArgument signals malformed caller input: wrong arity, an
	// out-of-range enumerated value, or a bad dimension-order string.  It is
	// always raised before any network access.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrOutOfBounds signals a requested region exceeding the extents of the
	// active resolution level without padding enabled.  It is raised after
	// bounds computation and before any data transfer.
	ErrOutOfBounds = errors.New("out-of-bounds pixel access")

	// ErrOutOfRange signals a pyramid level beyond the levels the server
	// declares for an image.
	ErrOutOfRange = errors.New("resolution level out of range")

	// ErrNotFound signals an id that does not resolve to an accessible
	// object.  Top-level accessors convert it into a nil result with a
	// logged warning so batch callers can skip missing objects.
	ErrNotFound = errors.New("object not found")

	// ErrBadPixelType signals a pixel type tag outside the closed set this
	// library understands.  It is fatal; values are never silently
	// reinterpreted under a default type.
	ErrBadPixelType = errors.New("unknown pixel type")
)
