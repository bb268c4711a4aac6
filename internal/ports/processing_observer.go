package ports

// ProcessingObserver defines the interface for observing processing results.
// Used to track metrics for all read lines, not just the ones that notify.
type ProcessingObserver interface {
	// IncrementLinesProcessedByResult records what happened to one line.
	//
	// Parameters:
	//   - result: "parsed", "event" or "skipped"
	//
	// Thread Safety: Implementations MUST be safe for concurrent calls.
	IncrementLinesProcessedByResult(result string)
}
