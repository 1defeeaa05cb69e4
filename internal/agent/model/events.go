package model

// EventType tags a streamed turn event.
type EventType string

const (
	EventToolCall EventType = "tool_call"
	EventContent  EventType = "content"
	EventArtifact EventType = "pdf"
	EventDone     EventType = "done"
	EventError    EventType = "error"
)

// Event is one item of a streamed turn. Only the field matching Type is set.
type Event struct {
	Type     EventType `json:"type"`
	Name     string    `json:"name,omitempty"`
	Content  string    `json:"content,omitempty"`
	Filename string    `json:"filename,omitempty"`
	Message  string    `json:"message,omitempty"`
}

// EventSink receives events in the order the loop produces them.
type EventSink func(Event)

func ToolCallEvent(name string) Event { return Event{Type: EventToolCall, Name: name} }
func ContentEvent(text string) Event { return Event{Type: EventContent, Content: text} }
func ArtifactEvent(filename string) Event { return Event{Type: EventArtifact, Filename: filename} }
func DoneEvent() Event { return Event{Type: EventDone} }
func ErrorEvent(msg string) Event { return Event{Type: EventError, Message: msg} }
