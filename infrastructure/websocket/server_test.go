package websocket

import (
	"chat-relay/domain"
	"chat-relay/infrastructure/storage"
	"chat-relay/observability"
	"chat-relay/runtime"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	ws "github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

const greeting = "Bienvenido al chat de meet2go!"

type fixture struct {
	server     *httptest.Server
	registry   *runtime.Registry
	repository storage.MessageRepository
}

func newFixture(t *testing.T) fixture {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)

	repository := storage.NewMessageRepository(db, log, nil, nil)
	registry := runtime.NewRegistry()
	relay := runtime.NewRelay(log, registry, repository, observability.NewRelayMonitor(log), runtime.RelayConfig{
		PersistTimeout:   time.Second,
		DeliveryTimeout:  time.Second,
		MaxMessageLength: 512,
	})
	server := httptest.NewServer(NewServer(log, relay, ServerConfig{
		Greeting:      greeting,
		MaxFrameBytes: 4096,
		AllowedOrigin: "*",
	}).Routes())

	t.Cleanup(func() {
		server.Close()
		_ = db.Close()
	})
	return fixture{server: server, registry: registry, repository: repository}
}

func (f fixture) dial(t *testing.T) *ws.Conn {
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws"
	conn, _, err := ws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func (f fixture) waitRegistered(t *testing.T, id domain.ParticipantID) {
	require.Eventually(t, func() bool {
		_, ok := f.registry.Lookup(id)
		return ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServer_Greeting(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	resp, err := http.Get(f.server.URL + "/")
	req.NoError(err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	req.NoError(err)
	req.Equal(http.StatusOK, resp.StatusCode)
	req.Equal(greeting, string(body))
}

func TestServer_Relays_Message_Between_Two_Connections(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	alice := f.dial(t)
	bob := f.dial(t)

	// Given alice (wrapped identity) and bob are registered
	req.NoError(alice.WriteMessage(ws.TextMessage, []byte(`{"event":"register","data":{"_j":"alice"}}`)))
	req.NoError(bob.WriteMessage(ws.TextMessage, []byte(`{"event":"register","data":"bob"}`)))
	f.waitRegistered(t, "alice")
	f.waitRegistered(t, "bob")

	// When alice sends a message to bob
	req.NoError(alice.WriteMessage(ws.TextMessage,
		[]byte(`{"event":"message","data":{"fromUid":{"_j":"alice"},"toUid":"bob","text":"hi"}}`)))

	// Then bob receives the persisted record
	req.NoError(bob.SetReadDeadline(time.Now().Add(2 * time.Second)))
	_, data, err := bob.ReadMessage()
	req.NoError(err)

	var frame Frame
	req.NoError(json.Unmarshal(data, &frame))
	req.Equal(domain.MessageKind, frame.Event)

	var message domain.Message
	req.NoError(json.Unmarshal(frame.Data, &message))
	req.NotZero(message.ID)
	req.False(message.CreatedAt.IsZero())
	req.Equal(domain.ParticipantID("alice"), message.FromUID)
	req.Equal(domain.ParticipantID("bob"), message.ToUID)
	req.Equal("hi", message.Text)

	// And the same record is in the store
	stored, _, err := f.repository.GetMessages("bob", nil)
	req.NoError(err)
	req.Len(stored, 1)
	req.Equal(message.ID, stored[0].ID)
}

func TestServer_Message_To_Absent_Participant_Is_Only_Stored(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	alice := f.dial(t)

	req.NoError(alice.WriteMessage(ws.TextMessage, []byte(`{"event":"register","data":"alice"}`)))
	f.waitRegistered(t, "alice")

	// When alice writes to carol who is not connected
	req.NoError(alice.WriteMessage(ws.TextMessage,
		[]byte(`{"event":"message","data":{"fromUid":"alice","toUid":"carol","text":"hi"}}`)))

	// Then the message is stored for carol
	require.Eventually(t, func() bool {
		stored, _, err := f.repository.GetMessages("carol", nil)
		return err == nil && len(stored) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// And alice receives nothing back
	req.NoError(alice.SetReadDeadline(time.Now().Add(100 * time.Millisecond)))
	_, _, err := alice.ReadMessage()
	req.Error(err)
}

func TestServer_Closing_Socket_Unregisters_Participant(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	bob := f.dial(t)

	req.NoError(bob.WriteMessage(ws.TextMessage, []byte(`{"event":"register","data":"bob"}`)))
	f.waitRegistered(t, "bob")

	// When bob's socket closes
	req.NoError(bob.WriteMessage(ws.CloseMessage, ws.FormatCloseMessage(ws.CloseNormalClosure, "")))
	_ = bob.Close()

	// Then bob is no longer reachable
	req.Eventually(func() bool {
		_, ok := f.registry.Lookup("bob")
		return !ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServer_Ignores_Bad_Frames(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	alice := f.dial(t)

	// Given garbage before a valid registration
	req.NoError(alice.WriteMessage(ws.TextMessage, []byte(`not json`)))
	req.NoError(alice.WriteMessage(ws.TextMessage, []byte(`{"event":"typing","data":{}}`)))
	req.NoError(alice.WriteMessage(ws.TextMessage, []byte(`{"event":"register","data":"alice"}`)))

	// Then the connection survives and the registration still applies
	f.waitRegistered(t, "alice")
}
