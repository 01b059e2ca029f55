// internal/call/result.go
package call

// Result is the decoded value of a successful call.
type Result struct {
	Value any
	// AdditionalInfo holds protocol metadata (response code, timing, ...).
	AdditionalInfo any
}

// BroadcastResult is the outcome of a one-to-many request.
type BroadcastResult int

const (
	BroadcastError BroadcastResult = iota
	BroadcastOK
)

func (b BroadcastResult) String() string {
	if b == BroadcastOK {
		return "OK"
	}
	return "ERROR"
}

// Info is a point-in-time view of one request.
type Info struct {
	ID     ID
	State  State
	Result *Result
	Err    *ProcessingError
}
