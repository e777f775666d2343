package ws

import (
	"encoding/json"
	"fmt"
	"presence-hub/domain"
	"presence-hub/domain/event"
	"presence-hub/errors"
)

// envelope is the JSON shape of every text frame, in both directions.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outboundFrame struct {
	Event event.Name `json:"event"`
	Data  any        `json:"data"`
}

// DecodeFrame turns a raw text frame into an inbound event of connection id.
// A nil event with a nil error means the frame carries nothing to dispatch.
func DecodeFrame(id domain.ConnectionID, raw []byte) (event.Inbound, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrMalformedEvent, err)
	}

	switch event.Kind(env.Event) {
	case event.JoinRoomKind:
		room, err := decodeRoom(env.Data)
		if err != nil {
			return nil, err
		}
		return event.JoinRoom{Connection: id, Room: room}, nil
	case event.LeaveRoomKind:
		room, err := decodeRoom(env.Data)
		if err != nil {
			return nil, err
		}
		return event.LeaveRoom{Connection: id, Room: room}, nil
	case event.TypingKind, event.StopTypingKind:
		room, err := decodeRoom(env.Data)
		if err != nil {
			return nil, err
		}
		return event.Typing{Connection: id, Room: room, Stopped: env.Event == string(event.StopTypingKind)}, nil
	case event.NewMessageKind:
		var message domain.ChatMessage
		if err := json.Unmarshal(env.Data, &message); err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrMalformedEvent, err)
		}
		return event.NewMessage{Connection: id, Message: message}, nil
	case event.DisconnectKind:
		return event.Disconnect{Connection: id}, nil
	case event.AdmitKind:
		// Admission only happens on the handshake.
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: unknown event %q", errors.ErrMalformedEvent, env.Event)
	}
}

// decodeRoom accepts a bare room id string. Missing data is an empty room.
func decodeRoom(data json.RawMessage) (domain.RoomID, error) {
	if len(data) == 0 || string(data) == "null" {
		return "", nil
	}
	var room string
	if err := json.Unmarshal(data, &room); err != nil {
		return "", fmt.Errorf("%w: room must be a string", errors.ErrMalformedEvent)
	}
	return domain.RoomID(room), nil
}

func EncodeFrame(evt event.Outbound) ([]byte, error) {
	return json.Marshal(outboundFrame{Event: evt.Name(), Data: evt.Payload()})
}
