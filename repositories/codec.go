package repositories

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Protobuf field numbers of a stored message.
const (
	idField protowire.Number = iota + 1
	roomField
	authorIDField
	authorNameField
	contentField
	atField
)

// MarshalDiskMessage encodes a message in protobuf wire format.
// The timestamp is an embedded google.protobuf.Timestamp.
func MarshalDiskMessage(message DiskMessage) ([]byte, error) {
	at, err := proto.Marshal(timestamppb.New(message.At))
	if err != nil {
		return nil, err
	}
	var b []byte
	b = appendString(b, idField, message.ID)
	b = appendString(b, roomField, message.Room)
	b = appendString(b, authorIDField, message.AuthorID)
	b = appendString(b, authorNameField, message.AuthorName)
	b = appendString(b, contentField, message.Content)
	b = protowire.AppendTag(b, atField, protowire.BytesType)
	return protowire.AppendBytes(b, at), nil
}

// UnmarshalDiskMessage decodes a value written by MarshalDiskMessage.
// Unknown fields are skipped.
func UnmarshalDiskMessage(b []byte) (DiskMessage, error) {
	var message DiskMessage
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return DiskMessage{}, protowire.ParseError(n)
		}
		b = b[n:]

		if typ != protowire.BytesType {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return DiskMessage{}, protowire.ParseError(n)
			}
			b = b[n:]
			continue
		}
		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return DiskMessage{}, protowire.ParseError(n)
		}
		b = b[n:]

		switch num {
		case idField:
			message.ID = string(v)
		case roomField:
			message.Room = string(v)
		case authorIDField:
			message.AuthorID = string(v)
		case authorNameField:
			message.AuthorName = string(v)
		case contentField:
			message.Content = string(v)
		case atField:
			var at timestamppb.Timestamp
			if err := proto.Unmarshal(v, &at); err != nil {
				return DiskMessage{}, fmt.Errorf("message timestamp: %w", err)
			}
			message.At = at.AsTime()
		}
	}
	return message, nil
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}
