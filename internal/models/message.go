package models

import "time"

// Message is a single anonymous letter as stored by the spreadsheet backend.
type Message struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"sessionId"`
}
