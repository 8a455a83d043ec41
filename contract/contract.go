//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-relay/domain"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Connection is a handle on one live transport connection.
// Handles are compared by identity: two handles are the same connection
// only if they are the same value.
type Connection interface {
	ID() string
	Send(ctx context.Context, event domain.EventKind, payload any) error
}

type IRegistry interface {
	Register(participantID domain.ParticipantID, conn Connection)
	Lookup(participantID domain.ParticipantID) (Connection, bool)
	RemoveByHandle(conn Connection) (domain.ParticipantID, bool)
	Len() int
}

// IMessageGateway durably stores a message and returns it enriched
// with the store-assigned identity and timestamp.
type IMessageGateway interface {
	Insert(ctx context.Context, draft domain.MessageDraft) (domain.Message, error)
}

type IRelay interface {
	Handle(ctx context.Context, conn Connection, evt domain.InboundEvent)
}
