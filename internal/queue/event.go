// Package queue defines message payloads exchanged over the message broker.
package queue

// MailRequestedEvent asks the mail consumer to deliver one HTML message.
// It is self-contained so the consumer never touches the database.
type MailRequestedEvent struct {
	To          string `json:"to"`
	Subject     string `json:"subject"`
	HTML        string `json:"html"`
	RequestedAt string `json:"requested_at"`
}
