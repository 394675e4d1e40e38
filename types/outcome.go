package types

// OutcomeStatus classifies how a stream session ended.
type OutcomeStatus string

const (
	// OutcomeCompleted means the source ended and the flush finished.
	OutcomeCompleted OutcomeStatus = "completed"
	// OutcomeCanceled means shutdown was requested and the pipeline
	// drained cleanly.
	OutcomeCanceled OutcomeStatus = "canceled"
	// OutcomeHalted means a fatal pipeline condition stopped the stream.
	OutcomeHalted OutcomeStatus = "halted"
)

// StreamOutcome is the terminal status of a stream session.
type StreamOutcome struct {
	Status  OutcomeStatus `json:"status"`
	Message string        `json:"message,omitempty"`
}
