package pipeline

import "sync"

// EventKind names a stream event category an SDK emitter can adapt
// (spec.md §4.K "stream:chunk, stream:progress, command:start,
// command:complete").
type EventKind string

const (
	EventStreamChunk     EventKind = "stream:chunk"
	EventStreamProgress  EventKind = "stream:progress"
	EventCommandStart    EventKind = "command:start"
	EventCommandComplete EventKind = "command:complete"
)

// StreamEvent is one bus event, bridged from a stage emission.
type StreamEvent struct {
	Kind       EventKind
	StageIndex int
	StageName  string
	Chunk      string
	Output     interface{}
}

// VisibilityFlags filters which event categories reach an emitter
// (spec.md §4.K "showThinking, showTools, showMetadata, showAll").
type VisibilityFlags struct {
	ShowThinking bool
	ShowTools    bool
	ShowMetadata bool
	ShowAll      bool
}

func (v VisibilityFlags) allows(kind EventKind) bool {
	if v.ShowAll {
		return true
	}
	switch kind {
	case EventCommandStart, EventCommandComplete:
		return v.ShowTools
	case EventStreamProgress:
		return v.ShowMetadata
	case EventStreamChunk:
		return v.ShowThinking
	default:
		return true
	}
}

// Emitter adapts bus events into an external sink — the "SDK emitter"
// of spec.md §4.K.
type Emitter interface {
	Emit(StreamEvent)
}

type subscription struct {
	emitter    Emitter
	visibility VisibilityFlags
}

// Bus bridges each stage emission onto zero or more subscribed
// emitters, honoring per-subscriber visibility flags and a pipeline-wide
// NoStream kill switch (spec.md §4.K "Streaming is disabled when
// noStream is set").
type Bus struct {
	mu       sync.Mutex
	noStream bool
	subs     []subscription
}

// NewBus returns a Bus; noStream disables all publishing regardless of
// subscriber visibility.
func NewBus(noStream bool) *Bus {
	return &Bus{noStream: noStream}
}

// Subscribe registers e to receive events matching visibility.
func (b *Bus) Subscribe(e Emitter, visibility VisibilityFlags) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, subscription{emitter: e, visibility: visibility})
}

func (b *Bus) publish(ev StreamEvent) {
	b.mu.Lock()
	subs := append([]subscription(nil), b.subs...)
	noStream := b.noStream
	b.mu.Unlock()

	if noStream {
		return
	}
	for _, sub := range subs {
		if sub.visibility.allows(ev.Kind) {
			sub.emitter.Emit(ev)
		}
	}
}
