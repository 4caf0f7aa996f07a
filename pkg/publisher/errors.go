package publisher

// ResolutionError reports a name that could not be resolved against a
// platform catalog (game version, mod loader, dependency version). It is
// fatal: resolution failures are never retried.
type ResolutionError struct {
	Message string
}

func (e *ResolutionError) Error() string {
	return e.Message
}
