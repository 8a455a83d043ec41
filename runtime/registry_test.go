package runtime

import (
	"chat-relay/domain"
	"chat-relay/mocks"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newConnection(ctrl *gomock.Controller, id string) *mocks.MockConnection {
	conn := mocks.NewMockConnection(ctrl)
	conn.EXPECT().ID().Return(id).AnyTimes()
	return conn
}

func TestRegistry_Register_And_Lookup(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	registry := NewRegistry()
	participantID := domain.ParticipantID(uuid.NewString())
	conn := newConnection(ctrl, "conn-a")

	// Given no participant is connected
	req.Zero(registry.Len())
	_, ok := registry.Lookup(participantID)
	req.False(ok)

	// When a participant registers
	registry.Register(participantID, conn)

	// Then its connection is found
	found, ok := registry.Lookup(participantID)
	req.True(ok)
	req.Same(conn, found)
	req.Equal(1, registry.Len())
}

func TestRegistry_Register_Last_Write_Wins(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	registry := NewRegistry()
	connA := newConnection(ctrl, "conn-a")
	connA2 := newConnection(ctrl, "conn-a2")

	// When the same participant registers twice from two connections
	registry.Register("alice", connA)
	registry.Register("alice", connA2)

	// Then only the latest connection answers for it
	found, ok := registry.Lookup("alice")
	req.True(ok)
	req.Same(connA2, found)
	req.Equal(1, registry.Len())
}

func TestRegistry_RemoveByHandle_Once(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	registry := NewRegistry()
	conn := newConnection(ctrl, "conn-a")

	// Given a registered participant
	registry.Register("alice", conn)

	// When its connection closes
	participantID, ok := registry.RemoveByHandle(conn)

	// Then the participant is gone
	req.True(ok)
	req.Equal(domain.ParticipantID("alice"), participantID)
	_, ok = registry.Lookup("alice")
	req.False(ok)

	// And a second removal is a no-op
	participantID, ok = registry.RemoveByHandle(conn)
	req.False(ok)
	req.Empty(participantID)
	req.Zero(registry.Len())
}

func TestRegistry_RemoveByHandle_Superseded_Connection_Keeps_Current(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	registry := NewRegistry()
	connA := newConnection(ctrl, "conn-a")
	connA2 := newConnection(ctrl, "conn-a2")

	// Given alice moved from connA to connA2
	registry.Register("alice", connA)
	registry.Register("alice", connA2)

	// When the superseded connection closes
	_, ok := registry.RemoveByHandle(connA)

	// Then nothing is removed and alice stays reachable on connA2
	req.False(ok)
	found, ok := registry.Lookup("alice")
	req.True(ok)
	req.Same(connA2, found)
}

func TestRegistry_RemoveByHandle_Removes_Oldest_Of_Shared_Handle(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	registry := NewRegistry()
	conn := newConnection(ctrl, "conn-shared")
	other := newConnection(ctrl, "conn-other")

	// Given one connection registered under several identities
	registry.Register("carol", other)
	registry.Register("bob", conn)
	registry.Register("alice", conn)

	// When the connection closes, only the first registration goes away
	participantID, ok := registry.RemoveByHandle(conn)
	req.True(ok)
	req.Equal(domain.ParticipantID("bob"), participantID)
	req.Equal(2, registry.Len())

	// And the next removal takes the following one
	participantID, ok = registry.RemoveByHandle(conn)
	req.True(ok)
	req.Equal(domain.ParticipantID("alice"), participantID)

	found, ok := registry.Lookup("carol")
	req.True(ok)
	req.Same(other, found)
}
