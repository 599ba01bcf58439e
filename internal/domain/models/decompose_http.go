package models

// Requests for decomposition HTTP endpoints.

// DecomposeSymbolsRequest selects stored candles by symbol. Empty symbols
// fall back to the configured defaults.
type DecomposeSymbolsRequest struct {
	Symbols string `query:"symbols" json:"symbols"`
	N       int    `query:"n" json:"n" default:"600" validate:"gte=2,lte=5000"`
	TF      string `query:"tf" json:"tf" default:"1m" validate:"oneof=1s 1m 5m"`
	// From and To accept RFC3339 or unix seconds.
	From string `query:"from" json:"from"`
	To   string `query:"to" json:"to"`
}

// DecomposeDatasetRequest carries an inline dataset.
type DecomposeDatasetRequest struct {
	Dataset
}

// DecomposeJobRequest enqueues a symbols decomposition.
type DecomposeJobRequest struct {
	Symbols []string `json:"symbols" validate:"required,min=1,dive,required"`
	N       int      `json:"n" default:"600" validate:"gte=2,lte=5000"`
	TF      string   `json:"tf" default:"1m" validate:"oneof=1s 1m 5m"`
}

// CapabilityResponse reports whether batches can run.
type CapabilityResponse struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// JobAccepted is returned when a job is enqueued.
type JobAccepted struct {
	JobID string `json:"job_id"`
}
