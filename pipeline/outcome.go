// ABOUTME: Outcome type returned by pipeline steps, with failure kinds and constructors.
// ABOUTME: Recorded outcomes are deep-copied so traces stay immutable after append.
package pipeline

import "fmt"

// FailureKind classifies why a step reported failure.
type FailureKind string

const (
	KindNone         FailureKind = ""
	KindPrecondition FailureKind = "precondition" // input the step needs is missing or invalid
	KindUpstream     FailureKind = "upstream"     // a remote model, backend, or file operation failed
	KindTimeout      FailureKind = "timeout"      // the step exceeded its time budget
	KindFault        FailureKind = "fault"        // the step panicked or returned no outcome
	KindCancelled    FailureKind = "cancelled"    // the run was cancelled while the step ran
)

// Outcome is the structured result of one step execution.
type Outcome struct {
	Success  bool           `json:"success" yaml:"success"`
	Data     map[string]any `json:"data" yaml:"data"`
	Message  string         `json:"message" yaml:"message"`
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Kind     FailureKind    `json:"kind,omitempty" yaml:"kind,omitempty"`
}

// Succeed builds a successful outcome carrying data for the next steps.
func Succeed(message string, data map[string]any) *Outcome {
	if data == nil {
		data = map[string]any{}
	}
	return &Outcome{Success: true, Data: data, Message: message}
}

// Fail builds a failed outcome. Failed outcomes never carry mergeable data.
func Fail(kind FailureKind, message string) *Outcome {
	return &Outcome{Success: false, Data: map[string]any{}, Message: message, Kind: kind}
}

// Failf is Fail with a format string.
func Failf(kind FailureKind, format string, args ...any) *Outcome {
	return Fail(kind, fmt.Sprintf(format, args...))
}

// WithMetadata sets metadata on the outcome and returns it for chaining.
func (o *Outcome) WithMetadata(metadata map[string]any) *Outcome {
	o.Metadata = metadata
	return o
}

// Clone returns a deep copy of the outcome.
func (o *Outcome) Clone() *Outcome {
	if o == nil {
		return nil
	}
	return &Outcome{
		Success:  o.Success,
		Data:     copyMap(o.Data),
		Message:  o.Message,
		Metadata: copyMap(o.Metadata),
		Kind:     o.Kind,
	}
}

// normalize enforces the outcome invariants before the engine records it.
func (o *Outcome) normalize() *Outcome {
	out := o.Clone()
	if out.Data == nil {
		out.Data = map[string]any{}
	}
	if !out.Success {
		out.Data = map[string]any{}
		if out.Kind == KindNone {
			out.Kind = KindUpstream
		}
	} else {
		out.Kind = KindNone
	}
	return out
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = copyValue(item)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	case map[string]string:
		out := make(map[string]string, len(t))
		for k, s := range t {
			out[k] = s
		}
		return out
	default:
		return v
	}
}
