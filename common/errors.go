package common

import (
	"errors"
)

var ErrDuplicateExists = errors.New("sample already exists for given sha256 digest")
var ErrAlreadyExists = errors.New("record already exists")
var ErrCountMismatch = errors.New("file and data arrays size mismatch")
var ErrMissingPayload = errors.New("no payload found")
var ErrEmptyPayload = errors.New("payload is empty")
var ErrMissingMetadata = errors.New("no metadata found")
var ErrExtractionFailed = errors.New("extraction failed")
var ErrStorageFailed = errors.New("storage failed")
var ErrPayloadTooLarge = errors.New("payload too large")
var ErrNoDatastore = errors.New("unable to locate a usable datastore")
