// Package errors provides structured, code-carrying errors for storage and
// gateway failure paths. The reducer core has no error paths; malformed input
// there is absorbed as a no-op rather than surfaced.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Storage errors
	CodeNotFound        Code = "NOT_FOUND"
	CodeSnapshotCorrupt Code = "SNAPSHOT_CORRUPT"

	// Gateway errors
	CodeEnvelopeInvalid   Code = "ENVELOPE_INVALID"
	CodeEnvelopeUnknown   Code = "ENVELOPE_UNKNOWN_KIND"
	CodeChannelIDRequired Code = "CHANNEL_ID_REQUIRED"
	CodeCommandInvalid    Code = "COMMAND_INVALID"
)
