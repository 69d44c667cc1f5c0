package workflow

// EventType is the workflow or job event a hook fires on.
type EventType string

const (
	EventNever   EventType = "never"
	EventStart   EventType = "start"
	EventError   EventType = "error"
	EventSuccess EventType = "success"
	EventEnd     EventType = "end"
	EventAll     EventType = "all"
)

var eventTypes = []EventType{EventNever, EventStart, EventError, EventSuccess, EventEnd, EventAll}

// Valid reports whether e is a recognized event.
func (e EventType) Valid() bool {
	for _, et := range eventTypes {
		if e == et {
			return true
		}
	}
	return false
}

// Hook is a notification attached to a job or workflow.
type Hook interface {
	// Kind is the key hooks of this type are grouped under.
	Kind() string
	Document() *Doc
}

// ShellHook runs a shell command when its event fires.
type ShellHook struct {
	On  EventType
	Cmd string
}

// NewShellHook validates on and returns a hook running cmd.
func NewShellHook(on EventType, cmd string) (*ShellHook, error) {
	if !on.Valid() {
		return nil, errorf(KindInvalidArgument, "invalid event: %q; event must be one of %v", on, eventTypes)
	}
	return &ShellHook{On: on, Cmd: cmd}, nil
}

// Kind returns "shell".
func (h *ShellHook) Kind() string { return "shell" }

// Document renders the hook as {"_on": event, "cmd": cmd}.
func (h *ShellHook) Document() *Doc {
	return NewDoc().Set("_on", string(h.On)).Set("cmd", h.Cmd)
}
