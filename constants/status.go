package constants

// RunStatus is the canonical status for rows in extraction_runs.
type RunStatus string

// Stable values (store these exact strings in DB).
const (
	RunStatusCompleted RunStatus = "COMPLETED" // result produced, any confidence
	RunStatusFailed    RunStatus = "FAILED"    // setup error, no result
)
