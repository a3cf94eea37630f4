package models

import "time"

// Capture is one click report as stored by the collector.
type Capture struct {
	ID         string            `json:"id"`
	ReceivedAt time.Time         `json:"received_at"`
	Path       string            `json:"path"`
	Client     *string           `json:"client"` // nullable
	Fields     map[string]string `json:"fields"` // data-analytics-* and configured attributes
	Referer    string            `json:"referer,omitempty"`
	UserAgent  string            `json:"user_agent,omitempty"`
}

// PathCount is the number of captures recorded for one element path.
type PathCount struct {
	Path  string `json:"path"`
	Count int64  `json:"count"`
}
