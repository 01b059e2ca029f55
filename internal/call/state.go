// internal/call/state.go
package call

// State is the processing state of a call request.
//
//	New -> WaitingForProcessing -> ResultArrived | Error
//
// Terminal states never change. NotFound is not a lifecycle state: it is
// returned for ids that were never dispatched or were already purged.
type State int

const (
	NotFound State = iota
	New
	WaitingForProcessing
	ResultArrived
	Error
)

func (s State) String() string {
	switch s {
	case NotFound:
		return "NOT_FOUND"
	case New:
		return "NEW"
	case WaitingForProcessing:
		return "WAITING_FOR_PROCESSING"
	case ResultArrived:
		return "RESULT_ARRIVED"
	case Error:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether the state can no longer change.
func (s State) Terminal() bool {
	return s == ResultArrived || s == Error
}
