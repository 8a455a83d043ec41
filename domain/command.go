package domain

type EventKind string

const (
	RegisterKind   EventKind = "register"
	MessageKind    EventKind = "message"
	DisconnectKind EventKind = "disconnect"
)

// InboundEvent is anything a connection can produce for the relay.
type InboundEvent interface {
	Kind() EventKind
}

// RegisterEvent binds the sending connection to an identity.
type RegisterEvent struct {
	Identity RawIdentity
}

func (RegisterEvent) Kind() EventKind { return RegisterKind }

// MessageEvent asks the relay to store and forward a text.
type MessageEvent struct {
	FromUID RawIdentity `json:"fromUid"`
	ToUID   RawIdentity `json:"toUid"`
	Text    string      `json:"text"`
}

func (MessageEvent) Kind() EventKind { return MessageKind }

// DisconnectEvent is emitted once, when the connection closes.
type DisconnectEvent struct{}

func (DisconnectEvent) Kind() EventKind { return DisconnectKind }
