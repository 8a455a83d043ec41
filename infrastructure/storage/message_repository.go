package storage

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	messagePrefix   = "msg:"
	recipientPrefix = "idx:to:"
	// newest is above any zero-padded nanosecond timestamp.
	newest = "9999999999999999999"
)

var _ contract.IMessageGateway = MessageRepository{}

type IMessageRepository interface {
	contract.IMessageGateway
	GetMessages(to domain.ParticipantID, cursor *string) ([]domain.Message, *string, error)
}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	clock         clock.Clock
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, clk clock.Clock, limitMessages *int) MessageRepository {
	if clk == nil {
		clk = clock.New()
	}
	return MessageRepository{db: db, log: log, clock: clk, limitMessages: limitMessages}
}

// Insert assigns the message its identity and timestamp and persists it in BadgerDB.
// The record key is "msg:{timestamp_padded}:{uuid}":
//  1. 19-digit zero padding keeps lexicographical order chronological.
//  2. The UUID separates two messages stored in the same nanosecond.
//
// A secondary key "idx:to:{recipient}:{timestamp_padded}:{uuid}" points back to
// the record so a recipient's messages can be listed without a full scan.
func (m MessageRepository) Insert(ctx context.Context, draft domain.MessageDraft) (domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return domain.Message{}, err
	}
	message := domain.Message{
		ID:        uuid.New(),
		FromUID:   draft.FromUID,
		ToUID:     draft.ToUID,
		Text:      draft.Text,
		CreatedAt: m.clock.Now().UTC(),
	}
	bytes, err := encodeMessage(message)
	if err != nil {
		return domain.Message{}, err
	}

	suffix := keySuffix(message)
	key := []byte(messagePrefix + suffix)
	index := []byte(recipientKeyPrefix(message.ToUID) + suffix)
	err = m.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, bytes); err != nil {
			return err
		}
		return txn.Set(index, key)
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("store message %s: %w", message.ID, err)
	}
	m.log.Debug("Message stored", "message_id", message.ID, "to", message.ToUID)
	return message, nil
}

// GetMessages lists messages newest first, optionally restricted to one recipient.
// The returned cursor resumes right after the last message of the page,
// and is nil when the page is empty.
// It stops collecting messages once the configured limitMessages is reached.
func (m MessageRepository) GetMessages(to domain.ParticipantID, cursor *string) ([]domain.Message, *string, error) {
	prefix := messagePrefix
	if to != "" {
		prefix = recipientKeyPrefix(to)
	}
	if cursor != nil && strings.Count(*cursor, ":") != 1 {
		return nil, nil, fmt.Errorf("%w: %q", errors.ErrInvalidCursor, *cursor)
	}

	var messages []domain.Message
	var lastKey string
	err := m.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		seekKey := []byte(prefix + newest)
		if cursor != nil {
			seekKey = []byte(prefix + *cursor)
		}
		it.Seek(seekKey)

		if cursor != nil && it.ValidForPrefix([]byte(prefix)) && string(it.Item().Key()) == string(seekKey) {
			it.Next()
		}

		for ; it.ValidForPrefix([]byte(prefix)); it.Next() {
			if m.limitMessages != nil && len(messages) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d message reached", *m.limitMessages))
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[len(prefix):])

			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if to != "" {
				record, err := txn.Get(value)
				if err != nil {
					return fmt.Errorf("resolve index %s: %w", item.Key(), err)
				}
				if value, err = record.ValueCopy(nil); err != nil {
					return err
				}
			}
			message, err := decodeMessage(value)
			if err != nil {
				return err
			}
			messages = append(messages, message)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if len(messages) == 0 {
		return messages, nil, nil
	}
	return messages, &lastKey, nil
}

func keySuffix(message domain.Message) string {
	return fmt.Sprintf("%019d:%s", message.CreatedAt.UnixNano(), message.ID)
}

func recipientKeyPrefix(to domain.ParticipantID) string {
	return recipientPrefix + url.QueryEscape(string(to)) + ":"
}

func encodeMessage(message domain.Message) ([]byte, error) {
	record, err := structpb.NewStruct(map[string]any{
		"id":        message.ID.String(),
		"fromUid":   string(message.FromUID),
		"toUid":     string(message.ToUID),
		"message":   message.Text,
		"createdAt": message.CreatedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, err
	}
	return proto.Marshal(record)
}

func decodeMessage(bytes []byte) (domain.Message, error) {
	var record structpb.Struct
	if err := proto.Unmarshal(bytes, &record); err != nil {
		return domain.Message{}, err
	}
	fields := record.GetFields()
	parsedID, err := uuid.Parse(fields["id"].GetStringValue())
	if err != nil {
		return domain.Message{}, err
	}
	createdAt, err := time.Parse(time.RFC3339Nano, fields["createdAt"].GetStringValue())
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ID:        parsedID,
		FromUID:   domain.ParticipantID(fields["fromUid"].GetStringValue()),
		ToUID:     domain.ParticipantID(fields["toUid"].GetStringValue()),
		Text:      fields["message"].GetStringValue(),
		CreatedAt: createdAt.UTC(),
	}, nil
}
