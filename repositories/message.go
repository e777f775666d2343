//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"fmt"
	"log/slog"
	"net/url"
	"presence-hub/domain"
	"presence-hub/errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/oklog/ulid/v2"
)

// lastKeySuffix sorts after every ULID character.
const lastKeySuffix = "~"

type IMessageRepository interface {
	StoreMessage(message DiskMessage) error
	GetMessages(room domain.RoomID, cursor *string) ([]DiskMessage, *string, error)
}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) MessageRepository {
	return MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

// DiskMessage is the stored form of a relayed message, encoded with
// MarshalDiskMessage.
type DiskMessage struct {
	ID         string
	Room       string
	AuthorID   string
	AuthorName string
	Content    string
	At         time.Time
}

// StoreMessage persists a message in BadgerDB.
// The key is "msg:{escaped_room}:{ulid}". ULIDs sort by time, so a prefix scan
// returns a room's history in chronological order. The room is escaped so
// that a room name containing ':' can't overlap another room's prefix.
func (m MessageRepository) StoreMessage(message DiskMessage) error {
	if _, err := ulid.ParseStrict(message.ID); err != nil {
		return fmt.Errorf("message id %q: %w", message.ID, err)
	}
	bytes, err := MarshalDiskMessage(message)
	if err != nil {
		return err
	}
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(message.Room, message.ID), bytes)
	})
}

// GetMessages returns a page of a room's history, newest first.
// The cursor is the id of the last message of the previous page; the returned
// cursor is nil once the history is exhausted.
func (m MessageRepository) GetMessages(room domain.RoomID, cursor *string) ([]DiskMessage, *string, error) {
	if cursor != nil {
		if _, err := ulid.ParseStrict(*cursor); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", errors.ErrInvalidCursor, err)
		}
	}

	var diskMessages []DiskMessage
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := roomPrefix(string(room))
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			seekKey = append(append([]byte{}, prefix...), lastKeySuffix...)
		default:
			seekKey = messageKey(string(room), *cursor)
		}

		it.Seek(seekKey)
		if cursor != nil && it.ValidForPrefix(prefix) && string(it.Item().Key()) == string(seekKey) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(diskMessages) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d message reached", *m.limitMessages))
				break
			}
			err := it.Item().Value(func(value []byte) error {
				message, err := UnmarshalDiskMessage(value)
				if err != nil {
					return err
				}
				diskMessages = append(diskMessages, message)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	if m.limitMessages == nil || len(diskMessages) < *m.limitMessages {
		return diskMessages, nil, nil
	}
	next := diskMessages[len(diskMessages)-1].ID
	return diskMessages, &next, nil
}

func roomPrefix(room string) []byte {
	return []byte(fmt.Sprintf("msg:%s:", url.QueryEscape(room)))
}

func messageKey(room, id string) []byte {
	return append(roomPrefix(room), id...)
}

// ToDiskMessage maps a relayed message to its stored form.
func ToDiskMessage(message domain.ChatMessage) DiskMessage {
	return DiskMessage{
		ID:         message.ID,
		Room:       string(message.RoomID),
		AuthorID:   message.Sender.ID,
		AuthorName: message.Sender.DisplayName,
		Content:    message.Content,
		At:         message.SentAt.UTC(),
	}
}

// ToChatMessage maps a stored message back to the wire form.
func ToChatMessage(message DiskMessage) domain.ChatMessage {
	return domain.ChatMessage{
		ID:      message.ID,
		RoomID:  domain.RoomID(message.Room),
		Content: message.Content,
		Sender:  domain.Identity{ID: message.AuthorID, DisplayName: message.AuthorName},
		SentAt:  message.At,
	}
}
