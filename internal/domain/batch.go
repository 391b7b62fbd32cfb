package domain

import "time"

// BatchItem wraps a metrics snapshot queued for backend delivery.
// Items stay in the pending queue until the backend acknowledges the
// batch they were sent in.
type BatchItem struct {
	BatchID    string           `json:"batchId"`
	Snapshot   *MetricsSnapshot `json:"snapshot"`
	EnqueuedAt time.Time        `json:"enqueuedAt"`
}

// BatchPayload is the wire shape of one delivery attempt
type BatchPayload struct {
	Items       []*BatchItem `json:"items"`
	Environment Environment  `json:"environment"`
	SentAt      time.Time    `json:"sentAt"`
}
