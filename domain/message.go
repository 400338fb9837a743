// Package domain contains core concepts of the chat system.
// This file defines direct messages and their wire representation.
// Messages are immutable once accepted by the relay.
package domain

import (
	"time"
)

// UserID is the server-verified identity of a user, stable for a session lifetime.
type UserID int64

// Message is the canonical record of a direct message.
// SenderID always comes from the authenticated connection, never from a payload.
type Message struct {
	ID                int64
	SenderID          UserID
	SenderDisplayName string
	ReceiverID        UserID
	Content           string
	CreatedAt         time.Time
}

// InboundMessage is the payload a client sends over its live connection.
// Pointers distinguish a missing field from a zero value.
type InboundMessage struct {
	ReceiverID *int64  `json:"receiverId" validate:"required,gt=0"`
	Message    *string `json:"message" validate:"required"`
}

// OutboundMessage is what the server pushes to the receiver and echoes to the sender.
// The same shape is returned by the history endpoint.
type OutboundMessage struct {
	ID                int64     `json:"id"`
	SenderID          int64     `json:"senderId"`
	ReceiverID        int64     `json:"receiverId"`
	Content           string    `json:"content"`
	Timestamp         time.Time `json:"timestamp"`
	SenderDisplayName string    `json:"senderDisplayName"`
}

func ToOutbound(m Message) OutboundMessage {
	return OutboundMessage{
		ID:                m.ID,
		SenderID:          int64(m.SenderID),
		ReceiverID:        int64(m.ReceiverID),
		Content:           m.Content,
		Timestamp:         m.CreatedAt.UTC(),
		SenderDisplayName: m.SenderDisplayName,
	}
}

// Involves reports whether the message belongs to the conversation between a and b.
func (m Message) Involves(a, b UserID) bool {
	return (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a)
}
