package models

// ProgressState is the ephemeral view of a running batch. It is never
// persisted; a new batch resets it.
type ProgressState struct {
	Current       int    `json:"current"`
	Total         int    `json:"total"`
	Percentage    int    `json:"percentage"`
	Elapsed       string `json:"elapsed"`        // mm:ss, ticking while running
	TotalDuration string `json:"total_duration"` // set once the batch ends
	Running       bool   `json:"running"`
}
