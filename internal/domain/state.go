package domain

type ListeningState string

const (
	StateIdle        ListeningState = "idle"
	StateListening   ListeningState = "listening"
	StateUnsupported ListeningState = "unsupported"
)

// Snapshot is the read-only view handed to whatever renders the assistant.
// History is newest first.
type Snapshot struct {
	State      ListeningState  `json:"state"`
	Listening  bool            `json:"isListening"`
	Supported  bool            `json:"isSupported"`
	Interim    string          `json:"interimTranscript"`
	LastAction string          `json:"lastAction"`
	History    []CommandRecord `json:"commandHistory"`
}
