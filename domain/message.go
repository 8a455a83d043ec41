// Package domain contains core concepts of the chat relay.
// This file defines Message records and related rules.
// A Message only exists once the store accepted it.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// MessageDraft is what a sender submits, before the store assigns identity and time.
type MessageDraft struct {
	FromUID ParticipantID `json:"fromUid" validate:"required"`
	ToUID   ParticipantID `json:"toUid" validate:"required"`
	Text    string        `json:"message"`
}

// Message represents an immutable persisted chat record.
type Message struct {
	ID        uuid.UUID     `json:"id"` // assigned by the store
	FromUID   ParticipantID `json:"fromUid"`
	ToUID     ParticipantID `json:"toUid"`
	Text      string        `json:"message"`
	CreatedAt time.Time     `json:"createdAt"` // assigned by the store
}

// RawDelivery is the payload delivered when the store failed and the relay
// is configured to forward the client fields anyway.
type RawDelivery struct {
	From ParticipantID `json:"from"`
	Text string        `json:"text"`
}
