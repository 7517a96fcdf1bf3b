package bus

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/compose-network/intersection-coordinator/x/codec"
)

const (
	fieldID       = "id"
	fieldTopic    = "topic"
	fieldSenderID = "sender_id"
	fieldStamp    = "stamp"
	fieldPayload  = "payload"
)

// encodeMessage wraps msg into an envelope struct and frames it with c.
func encodeMessage(c codec.Codec, msg Message) ([]byte, error) {
	payload := msg.Payload
	if payload == nil {
		payload = &structpb.Struct{Fields: map[string]*structpb.Value{}}
	}

	env := &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldID:       structpb.NewStringValue(msg.ID.String()),
		fieldTopic:    structpb.NewStringValue(msg.Topic),
		fieldSenderID: structpb.NewStringValue(msg.SenderID),
		fieldStamp:    structpb.NewStringValue(msg.Stamp.UTC().Format(time.RFC3339Nano)),
		fieldPayload:  structpb.NewStructValue(payload),
	}}

	data, err := c.Encode(env)
	if err != nil {
		return nil, fmt.Errorf("encode envelope for %s: %w", msg.Topic, err)
	}
	return data, nil
}

// decodeMessage is the inverse of encodeMessage.
func decodeMessage(c codec.Codec, data []byte) (Message, error) {
	var env structpb.Struct
	if err := c.Decode(data, &env); err != nil {
		return Message{}, fmt.Errorf("decode envelope: %w", err)
	}

	fields := env.GetFields()
	topic := fields[fieldTopic].GetStringValue()
	if topic == "" {
		return Message{}, fmt.Errorf("decode envelope: missing %s", fieldTopic)
	}

	msg := Message{
		Topic:    topic,
		SenderID: fields[fieldSenderID].GetStringValue(),
		Payload:  fields[fieldPayload].GetStructValue(),
	}
	if msg.Payload == nil {
		return Message{}, fmt.Errorf("decode envelope for %s: missing %s", topic, fieldPayload)
	}

	if raw := fields[fieldID].GetStringValue(); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return Message{}, fmt.Errorf("decode envelope for %s: bad id: %w", topic, err)
		}
		msg.ID = id
	}
	if raw := fields[fieldStamp].GetStringValue(); raw != "" {
		stamp, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return Message{}, fmt.Errorf("decode envelope for %s: bad stamp: %w", topic, err)
		}
		msg.Stamp = stamp
	}
	return msg, nil
}
