package domain

import "time"

// Message is one chat message within a mentorship connection.
type Message struct {
	ID          string    `json:"id"`
	SenderEmail string    `json:"sender_email"`
	Content     string    `json:"content"`
	Seen        bool      `json:"seen"`
	CreatedAt   time.Time `json:"created_at"`
}

// MessageStatus is the seen flag for a single message, as reported by the
// lightweight status endpoint.
type MessageStatus struct {
	ID   string `json:"id"`
	Seen bool   `json:"seen"`
}

// Conversation is the cached message list for one mentorship connection.
type Conversation struct {
	ConnectionID string
	Messages     []Message
	UpdatedAt    time.Time
}
