package dispatch

import "errors"

// Outcome classifies what a handler did with an event.
type Outcome int

const (
	// Applied means tables changed or events were emitted.
	Applied Outcome = iota
	// Ignored means the event named something unknown and was dropped.
	Ignored
	// Failed means the handler hit an internal error or panicked.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Ignored:
		return "ignored"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Result is returned by every hub operation. Callers on the transport side
// never forward it to a client.
type Result struct {
	Outcome Outcome
	Reason  string
	Err     error
}

var (
	ErrUnknownEvent   = errors.New("unknown event")
	ErrInvalidPayload = errors.New("invalid payload")
	ErrReactorStopped = errors.New("reactor stopped")
)

func applied() Result { return Result{Outcome: Applied} }

func ignored(reason string) Result { return Result{Outcome: Ignored, Reason: reason} }

func failed(err error) Result { return Result{Outcome: Failed, Reason: err.Error(), Err: err} }
