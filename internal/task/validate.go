package task

import (
	"encoding/json"
	"fmt"
)

// ValidationError reports a malformed request body. It is a caller error:
// the transport layer surfaces it as a client-error response and nothing
// below the validator ever sees the request.
type ValidationError struct {
	Kind    string
	Message string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Validation error kinds, in the order the validator checks them.
const (
	MissingTaskType = "MissingTaskType"
	MissingPayload  = "MissingPayload"
	NotAnArray      = "NotAnArray"
)

// rawTask mirrors the wire shape of a single task submission. Payload stays
// raw so that "field absent" and "field present but empty" are distinguishable.
type rawTask struct {
	TaskType string          `json:"taskType"`
	Payload  json.RawMessage `json:"payload"`
}

// toTask decodes the raw payload into the opaque structured value carried by
// a Task. Called only after presence checks have passed.
func (r rawTask) toTask() (Task, error) {
	var payload any
	if err := json.Unmarshal(r.Payload, &payload); err != nil {
		return Task{}, &ValidationError{Kind: MissingPayload, Message: "payload is not valid JSON"}
	}
	return Task{Agent: r.TaskType, Payload: payload}, nil
}

// ParseTask validates a raw single-task request body. Checks run in order
// and the first failure wins: taskType must be a non-empty string, then the
// payload field must exist (an empty structured value is fine).
func ParseTask(body []byte) (Task, error) {
	var raw rawTask
	if err := json.Unmarshal(body, &raw); err != nil {
		return Task{}, &ValidationError{Kind: MissingTaskType, Message: "request body is not a JSON object"}
	}
	if raw.TaskType == "" {
		return Task{}, &ValidationError{Kind: MissingTaskType, Message: "taskType must be a non-empty string"}
	}
	if raw.Payload == nil {
		return Task{}, &ValidationError{Kind: MissingPayload, Message: "payload field is required"}
	}
	return raw.toTask()
}

// ParseBatch validates a raw batch request body of the form
// {"tasks": [...]}. The only structural rule at this level is that tasks is
// an ordered sequence; per-task agent resolution happens at dispatch time so
// that one bad entry cannot reject the whole batch.
func ParseBatch(body []byte) ([]Task, error) {
	var envelope struct {
		Tasks json.RawMessage `json:"tasks"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &ValidationError{Kind: NotAnArray, Message: "request body is not a JSON object"}
	}

	var raws []rawTask
	if err := json.Unmarshal(envelope.Tasks, &raws); err != nil {
		return nil, &ValidationError{Kind: NotAnArray, Message: "tasks must be an array"}
	}

	tasks := make([]Task, 0, len(raws))
	for _, raw := range raws {
		var payload any
		if raw.Payload != nil {
			// Invalid JSON cannot survive the outer unmarshal, so this
			// cannot fail here.
			_ = json.Unmarshal(raw.Payload, &payload)
		}
		tasks = append(tasks, Task{Agent: raw.TaskType, Payload: payload})
	}
	return tasks, nil
}
