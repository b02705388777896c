package task

// Identity is the resolved caller of a dispatch. It is produced by the
// identity resolver from a bearer credential, owned by the request scope,
// and never mutated.
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// Task is one unit of work submitted for dispatch. Agent names the handler
// the task is routed to; Payload is an opaque structured value whose shape
// only that handler understands.
type Task struct {
	// Caller is nil until the transport layer binds the authenticated
	// identity onto the task.
	Caller  *Identity
	Agent   string
	Payload any
}

// WithCaller returns a copy of the task with the caller identity attached.
func (t Task) WithCaller(id Identity) Task {
	t.Caller = &id
	return t
}

// ErrorKind classifies a dispatch-layer failure carried inside an Outcome.
type ErrorKind string

const (
	// ErrorUnknownAgent means the task named an agent no handler is
	// registered for. A valid input, but an invalid dispatch.
	ErrorUnknownAgent ErrorKind = "UnknownAgent"

	// ErrorHandler means the handler itself rejected or failed the task.
	ErrorHandler ErrorKind = "HandlerError"

	// ErrorTimeout means the handler did not complete within the
	// per-request deadline.
	ErrorTimeout ErrorKind = "Timeout"
)

// Outcome is the uniform success-or-error envelope returned per task.
// Exactly one of Result and Error is set.
type Outcome struct {
	Agent  string    `json:"agent"`
	Result any       `json:"result,omitempty"`
	Error  ErrorKind `json:"error,omitempty"`
	Reason string    `json:"reason,omitempty"`
}

// Success wraps a handler result into an Outcome.
func Success(agent string, result any) Outcome {
	return Outcome{Agent: agent, Result: result}
}

// Failure wraps a dispatch-layer error into an Outcome.
func Failure(agent string, kind ErrorKind, reason string) Outcome {
	return Outcome{Agent: agent, Error: kind, Reason: reason}
}

// Failed reports whether the outcome carries an error instead of a result.
func (o Outcome) Failed() bool {
	return o.Error != ""
}
