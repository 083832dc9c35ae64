package ir

// Version constants for persisted formats and the engine.
const (
	// StateFormatVersion is the version of the cursor and library blobs.
	StateFormatVersion = 1

	// EngineVersion is the rxnenum engine version.
	EngineVersion = "0.1.0"
)
