package ir

// Version constants for the action schema and engine.
const (
	// SchemaVersion is the action encoding version written to the journal.
	SchemaVersion = "1"

	// EngineVersion is the rewind engine version.
	EngineVersion = "0.1.0"
)
