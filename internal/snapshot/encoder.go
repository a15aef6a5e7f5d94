// Package snapshot flattens entity values into generic maps so validation
// expressions can bind entity properties as top-level variables.
package snapshot

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// PostHook lets callers adjust or augment the flattened map after encoding.
type PostHook func(map[string]any) (map[string]any, error)

// EncoderOption configures an Encoder instance.
type EncoderOption[T any] func(*Encoder[T])

// WithPostHook applies hook after encoding completes.
func WithPostHook[T any](hook PostHook) EncoderOption[T] {
	return func(e *Encoder[T]) {
		e.postHooks = append(e.postHooks, hook)
	}
}

// Encoder converts entity values into property maps.
type Encoder[T any] struct {
	postHooks []PostHook
}

// NewEncoder constructs an Encoder with the supplied options.
func NewEncoder[T any](opts ...EncoderOption[T]) *Encoder[T] {
	e := &Encoder[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Encode flattens entity into a map keyed by exported field names. Values are
// JSON-shaped (numbers become float64), which is what the rule engines expect.
func (e *Encoder[T]) Encode(entity T) (map[string]any, error) {
	payload, err := json.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("snapshot: marshal %T: %w", entity, err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("snapshot: unmarshal %T: %w", entity, err)
	}
	for _, hook := range e.postHooks {
		if hook == nil {
			continue
		}
		next, err := hook(out)
		if err != nil {
			return nil, fmt.Errorf("snapshot: post-hook: %w", err)
		}
		if next != nil {
			out = next
		}
	}
	return out, nil
}
