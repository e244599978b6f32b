package ops

// Status classifies the outcome of a single store operation.
type Status int

const (
	// StatusSuccess carries the key (and value for reads).
	StatusSuccess Status = iota
	// StatusNotFound is the normal outcome for missing or expired keys.
	StatusNotFound
	// StatusUnavailable means the store could not be reached; the
	// connection manager has been told and a reconnect is under way.
	StatusUnavailable
	// StatusStoreError is a backend-reported failure distinct from
	// connectivity.
	StatusStoreError
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusNotFound:
		return "not_found"
	case StatusUnavailable:
		return "unavailable"
	case StatusStoreError:
		return "store_error"
	}
	return "unknown"
}

// Result is the outcome of one Put or Get. Operations return it instead of
// raising faults across the record-processing boundary.
type Result struct {
	Status Status
	Key    string
	Value  []byte
	Err    error
}
