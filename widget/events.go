package widget

// EventKind is the closed set of widget events this front end consumes.
// The hosted widget reports many more; everything else is ignored at the
// adapter boundary so event handling stays a single typed dispatch path.
type EventKind int

const (
	EventJoined EventKind = iota
	EventKnocking
	EventAdmissionGranted
	EventAdmissionDenied
	EventConnectionFailed
	EventReadyToClose
)

// wireNames maps event kinds to the names the external widget uses in
// addEventListener calls.
var wireNames = map[EventKind]string{
	EventJoined:           "videoConferenceJoined",
	EventKnocking:         "participantKnocking",
	EventAdmissionGranted: "lobby.participant-access-granted",
	EventAdmissionDenied:  "lobby.participant-access-denied",
	EventConnectionFailed: "connectionFailed",
	EventReadyToClose:     "readyToClose",
}

func (k EventKind) String() string {
	if name, ok := wireNames[k]; ok {
		return name
	}
	return "unknown"
}

// KindFromWireName resolves an external event name to its kind.
func KindFromWireName(name string) (EventKind, bool) {
	for kind, wireName := range wireNames {
		if wireName == name {
			return kind, true
		}
	}
	return 0, false
}

// Event is a tagged widget event with its raw payload.
type Event struct {
	Kind    EventKind
	Payload map[string]interface{}
}
