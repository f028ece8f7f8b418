package reactor

// Kind is the closed set of upstream event tags the reactor understands.
// Anything else maps to Unknown and is ignored.
type Kind int

const (
	Unknown Kind = iota
	WakeDetected
	ErrorReported
	StreamingStarted
	Synthesize
	RunSatellite
	Connected
	Disconnected
)

// Error code that triggers the red no-text flash.
const CodeNoTextRecognized = "stt-no-text-recognized"

// Event is consumed once and never stored.
type Event struct {
	Kind Kind
	// Code carries data.code for ErrorReported events.
	Code string
}

var kinds = map[string]Kind{
	"wake-detected":          WakeDetected,
	"error":                  ErrorReported,
	"streaming-started":      StreamingStarted,
	"synthesize":             Synthesize,
	"run-satellite":          RunSatellite,
	"satellite-connected":    Connected,
	"satellite-disconnected": Disconnected,
}

func ParseKind(s string) Kind {
	return kinds[s]
}

// FromWire maps a decoded {type, data} pair onto an Event.
func FromWire(typ string, data map[string]interface{}) Event {
	ev := Event{Kind: ParseKind(typ)}
	if ev.Kind == ErrorReported {
		ev.Code, _ = data["code"].(string)
	}
	return ev
}
