package websocket

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"encoding/json"
	"fmt"
)

// Frame is the envelope of every websocket text message, in both directions.
type Frame struct {
	Event domain.EventKind `json:"event"`
	Data  json.RawMessage  `json:"data,omitempty"`
}

// DecodeEvent turns a client frame into an inbound event.
// Disconnects are never sent by clients, they come from the socket closing.
func DecodeEvent(data []byte) (domain.InboundEvent, error) {
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrInvalidFrame, err)
	}
	if len(frame.Data) == 0 {
		return nil, fmt.Errorf("%w: %s without data", errors.ErrInvalidFrame, frame.Event)
	}

	switch frame.Event {
	case domain.RegisterKind:
		var identity domain.RawIdentity
		if err := json.Unmarshal(frame.Data, &identity); err != nil {
			return nil, fmt.Errorf("%w: %w", errors.ErrInvalidFrame, err)
		}
		return domain.RegisterEvent{Identity: identity}, nil
	case domain.MessageKind:
		var evt domain.MessageEvent
		if err := json.Unmarshal(frame.Data, &evt); err != nil {
			return nil, fmt.Errorf("%w: %w", errors.ErrInvalidFrame, err)
		}
		return evt, nil
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownEvent, frame.Event)
	}
}

func EncodeFrame(event domain.EventKind, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Event: event, Data: data})
}
