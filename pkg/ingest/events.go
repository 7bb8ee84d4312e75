package ingest

// EventType identifies one step of a streamed bulk ingestion.
type EventType string

const (
	EventStart     EventType = "start"
	EventItemStart EventType = "item_start"
	EventItemDone  EventType = "item_done"
	EventItemError EventType = "item_error"
	EventDone      EventType = "done"
)

// Event is one progress notification. The stream for a batch is ordered
// start, then per-item start/done/error, then done; items owned by
// different subjects may interleave.
type Event struct {
	Type        EventType `json:"type"`
	Subject     string    `json:"subject,omitempty"`
	AccessionNo string    `json:"accession_no,omitempty"`
	Error       string    `json:"error,omitempty"`
	Chunks      int       `json:"chunks,omitempty"`
	Assertions  int       `json:"assertions,omitempty"`
}
