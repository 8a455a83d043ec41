// Package runtime tracks which participants are reachable and relays messages between them.
// It orchestrates the message store and the transport without owning either.
package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/observability"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	defaultPersistTimeout  = 5 * time.Second
	defaultDeliveryTimeout = 2 * time.Second
)

var _ contract.IRelay = (*Relay)(nil)

type FailurePolicy string

const (
	// FailurePolicyAbort drops a message the store refused.
	FailurePolicyAbort FailurePolicy = "abort"
	// FailurePolicyDeliverRaw still forwards the client fields when the store failed.
	FailurePolicyDeliverRaw FailurePolicy = "deliver-raw"
)

func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(s) {
	case FailurePolicyAbort, FailurePolicyDeliverRaw:
		return FailurePolicy(s), nil
	case "":
		return FailurePolicyAbort, nil
	default:
		return "", fmt.Errorf("%w: %q", errors.ErrInvalidFailurePolicy, s)
	}
}

// Outcome is how the relay finished with one message.
type Outcome string

const (
	OutcomeDelivered      Outcome = "delivered"
	OutcomeDeliveredRaw   Outcome = "delivered_raw"
	OutcomeUnreachable    Outcome = "unreachable"
	OutcomePersistFailed  Outcome = "persist_failed"
	OutcomeDeliveryFailed Outcome = "delivery_failed"
	OutcomeRejected       Outcome = "rejected"
)

type RelayConfig struct {
	PersistTimeout     time.Duration
	DeliveryTimeout    time.Duration
	MaxMessageLength   int
	NormalizeRecipient bool
	FailurePolicy      FailurePolicy
}

// Relay stores every inbound message first and only then tries to hand it
// to the recipient's current connection.
type Relay struct {
	log      *slog.Logger
	registry contract.IRegistry
	gateway  contract.IMessageGateway
	monitor  *observability.RelayMonitor
	validate *validator.Validate
	config   RelayConfig
}

func NewRelay(log *slog.Logger, registry contract.IRegistry, gateway contract.IMessageGateway,
	monitor *observability.RelayMonitor, config RelayConfig) *Relay {
	if config.PersistTimeout <= 0 {
		config.PersistTimeout = defaultPersistTimeout
	}
	if config.DeliveryTimeout <= 0 {
		config.DeliveryTimeout = defaultDeliveryTimeout
	}
	if config.FailurePolicy == "" {
		config.FailurePolicy = FailurePolicyAbort
	}
	if monitor == nil {
		monitor = observability.NewRelayMonitor(log)
	}
	return &Relay{
		log:      log,
		registry: registry,
		gateway:  gateway,
		monitor:  monitor,
		validate: validator.New(),
		config:   config,
	}
}

// Handle is the single entry point for everything a connection produces.
// Events from one connection must be handed over in the order they arrived.
func (r *Relay) Handle(ctx context.Context, conn contract.Connection, evt domain.InboundEvent) {
	r.monitor.RecordEvent(string(evt.Kind()))

	switch e := evt.(type) {
	case domain.RegisterEvent:
		r.Register(conn, e.Identity)
	case domain.MessageEvent:
		outcome := r.Relay(ctx, e)
		r.monitor.RecordOutcome(string(outcome))
	case domain.DisconnectEvent:
		r.Disconnect(conn)
	default:
		r.log.Warn("Unsupported inbound event", "kind", evt.Kind(), "connection_id", conn.ID())
	}
}

// Register makes conn the current connection for the identity.
// A previous connection for the same participant stays open but is no longer addressable.
func (r *Relay) Register(conn contract.Connection, identity domain.RawIdentity) domain.ParticipantID {
	if identity.Ambiguous() {
		r.log.Warn("Identity has an unexpected shape, using it as is",
			"identity", identity.Text, "connection_id", conn.ID())
	}
	participantID := identity.Normalize()
	r.registry.Register(participantID, conn)
	r.monitor.SetParticipants(r.registry.Len())
	r.log.Debug("Participant registered", "participant_id", participantID, "connection_id", conn.ID())
	return participantID
}

// Disconnect forgets whichever participant conn was answering for.
func (r *Relay) Disconnect(conn contract.Connection) (domain.ParticipantID, bool) {
	participantID, ok := r.registry.RemoveByHandle(conn)
	r.monitor.SetParticipants(r.registry.Len())
	if ok {
		r.log.Info(fmt.Sprintf("Participant disconnected : %s", participantID), "connection_id", conn.ID())
	}
	return participantID, ok
}

// Relay runs one message through persist-then-deliver.
// Nothing is reported back to the sender, the returned Outcome is for observability only.
func (r *Relay) Relay(ctx context.Context, evt domain.MessageEvent) Outcome {
	draft := r.toDraft(evt)
	if err := r.check(draft); err != nil {
		r.log.Warn("Message rejected", "from", draft.FromUID, "to", draft.ToUID, "error", err)
		return OutcomeRejected
	}

	message, err := r.persist(ctx, draft)
	if err != nil {
		r.log.Error("Failed to store message", "from", draft.FromUID, "to", draft.ToUID, "error", err)
		if r.config.FailurePolicy == FailurePolicyDeliverRaw {
			raw := domain.RawDelivery{From: draft.FromUID, Text: draft.Text}
			return r.deliver(ctx, draft.ToUID, raw, OutcomeDeliveredRaw)
		}
		return OutcomePersistFailed
	}
	return r.deliver(ctx, message.ToUID, message, OutcomeDelivered)
}

// toDraft normalizes the sender. The recipient is taken as received
// unless NormalizeRecipient is set.
func (r *Relay) toDraft(evt domain.MessageEvent) domain.MessageDraft {
	if evt.FromUID.Ambiguous() {
		r.log.Warn("Sender identity has an unexpected shape, using it as is", "identity", evt.FromUID.Text)
	}
	to := evt.ToUID.Raw()
	if r.config.NormalizeRecipient {
		to = evt.ToUID.Normalize()
	}
	return domain.MessageDraft{
		FromUID: evt.FromUID.Normalize(),
		ToUID:   to,
		Text:    evt.Text,
	}
}

func (r *Relay) check(draft domain.MessageDraft) error {
	if err := r.validate.Struct(draft); err != nil {
		return err
	}
	if r.config.MaxMessageLength > 0 {
		return r.validate.Var(draft.Text, fmt.Sprintf("max=%d", r.config.MaxMessageLength))
	}
	return nil
}

// persist is the only place where a message waits. The wait is bounded even
// if the gateway ignores its context.
func (r *Relay) persist(ctx context.Context, draft domain.MessageDraft) (domain.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, r.config.PersistTimeout)
	defer cancel()

	type result struct {
		message domain.Message
		err     error
	}
	done := make(chan result, 1)
	start := time.Now()
	go func() {
		message, err := r.gateway.Insert(ctx, draft)
		done <- result{message: message, err: err}
	}()

	select {
	case res := <-done:
		r.monitor.RecordPersist(time.Since(start), res.err)
		return res.message, res.err
	case <-ctx.Done():
		err := fmt.Errorf("%w: %w", errors.ErrPersistenceTimeout, ctx.Err())
		r.monitor.RecordPersist(time.Since(start), err)
		return domain.Message{}, err
	}
}

// deliver looks the recipient up at delivery time, after the store answered,
// so a disconnect that happened meanwhile is honored.
func (r *Relay) deliver(ctx context.Context, to domain.ParticipantID, payload any, success Outcome) Outcome {
	conn, ok := r.registry.Lookup(to)
	if !ok {
		r.log.Debug(fmt.Sprintf("Participant %s not connected, message not delivered in real time", to))
		return OutcomeUnreachable
	}

	ctx, cancel := context.WithTimeout(ctx, r.config.DeliveryTimeout)
	defer cancel()
	if err := conn.Send(ctx, domain.MessageKind, payload); err != nil {
		r.log.Warn("Failed to deliver message", "to", to, "connection_id", conn.ID(), "error", err)
		return OutcomeDeliveryFailed
	}
	return success
}
