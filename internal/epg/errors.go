package epg

import "errors"

// Custom ingest errors
var (
	// ErrRunInProgress indicates another ingest run has not finished yet
	ErrRunInProgress = errors.New("ingest run already in progress")

	// ErrNoChannels indicates neither the provider nor the channel file yielded channels
	ErrNoChannels = errors.New("no channels available")

	// ErrNoStore indicates an operation needs the database but none is configured
	ErrNoStore = errors.New("database is not configured")
)

// IsRunInProgress checks if the error is a run in progress error
func IsRunInProgress(err error) bool {
	return errors.Is(err, ErrRunInProgress)
}

// IsNoChannels checks if the error is a no channels error
func IsNoChannels(err error) bool {
	return errors.Is(err, ErrNoChannels)
}
