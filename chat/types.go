package chat

import (
	"fmt"

	"github.com/dfarias/incident-insights/index"
	"github.com/dfarias/incident-insights/llm"
)

// Conversation is the ordered turn history for one session. It is an
// explicit value passed into and returned from Ask, never process-wide
// state. Under the bounded-memory contract it holds only the latest
// user/assistant exchange.
type Conversation struct {
	Turns []llm.Message
}

// StreetInsight is the graph-backed vehicle breakdown for one street.
type StreetInsight struct {
	Total     int
	ByVehicle map[string]int
}

// Answer is the engine's response for one question. Transient; not
// persisted beyond the current turn.
type Answer struct {
	Text     string
	Context  []index.Chunk
	Insights map[string]StreetInsight
}

// GenerationError wraps a failed language-model call. The conversation
// passed to Ask is returned unchanged alongside it.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string { return fmt.Sprintf("generate answer: %v", e.Err) }

func (e *GenerationError) Unwrap() error { return e.Err }
