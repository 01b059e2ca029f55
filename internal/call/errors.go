// internal/call/errors.go
package call

import "fmt"

// ErrorKind classifies why a call request ended in the Error state.
type ErrorKind uint16

const (
	// KindDispatchToConnector: the request never reached the link
	// (connector not running or destroyed while the request was queued).
	KindDispatchToConnector ErrorKind = iota + 1
	// KindDispatchToProtocolLayer: the transport rejected the request.
	KindDispatchToProtocolLayer
	// KindProtocolProcessing: the protocol layer could not encode the request.
	KindProtocolProcessing
	// KindResponseDecoding: the response arrived but could not be decoded.
	KindResponseDecoding
	// KindNetworkInternal: the remote side reported an error.
	KindNetworkInternal
	// KindNoResponse: no response after all send attempts.
	KindNoResponse
)

func (k ErrorKind) String() string {
	switch k {
	case KindDispatchToConnector:
		return "dispatch to connector"
	case KindDispatchToProtocolLayer:
		return "dispatch to protocol layer"
	case KindProtocolProcessing:
		return "protocol layer processing"
	case KindResponseDecoding:
		return "response decoding"
	case KindNetworkInternal:
		return "network internal"
	case KindNoResponse:
		return "no response"
	default:
		return fmt.Sprintf("kind(%d)", uint16(k))
	}
}

// ProcessingError is the terminal failure of one call request.
type ProcessingError struct {
	Kind   ErrorKind
	Detail string
	// Code carries a remote response code for KindNetworkInternal, 0 otherwise.
	Code int
	// Cause is the underlying error, if any.
	Cause error
}

// NewError builds a processing error of the given kind.
func NewError(kind ErrorKind, format string, args ...any) *ProcessingError {
	return &ProcessingError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// WrapError builds a processing error around an underlying cause.
func WrapError(kind ErrorKind, cause error) *ProcessingError {
	detail := ""
	if cause != nil {
		detail = cause.Error()
	}
	return &ProcessingError{Kind: kind, Detail: detail, Cause: cause}
}

func (e *ProcessingError) Error() string {
	if e.Detail == "" {
		return "call: " + e.Kind.String()
	}
	return fmt.Sprintf("call: %s: %s", e.Kind, e.Detail)
}

func (e *ProcessingError) Unwrap() error { return e.Cause }

// Transient reports whether issuing the same call again could succeed.
// Link and encoding failures will not heal by themselves.
func (e *ProcessingError) Transient() bool {
	return e.Kind == KindNoResponse || e.Kind == KindNetworkInternal
}
