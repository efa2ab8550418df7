package ir

// Version constants for the bridge and its trace schema.
const (
	// TraceVersion is the version of the recorded trace layout.
	TraceVersion = "1"

	// BridgeVersion is the version of the variable bridge.
	BridgeVersion = "0.3.0"
)
