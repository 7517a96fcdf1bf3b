package codec

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// JSONCodec encodes envelopes as canonical protobuf JSON, readable from redis-cli MONITOR.
type JSONCodec struct {
	maxMessageSize int
	marshal        protojson.MarshalOptions
	unmarshal      protojson.UnmarshalOptions
}

func NewJSONCodec(maxMessageSize int) *JSONCodec {
	return &JSONCodec{
		maxMessageSize: maxMessageSize,
		unmarshal:      protojson.UnmarshalOptions{DiscardUnknown: true},
	}
}

func (c *JSONCodec) Encode(msg proto.Message) ([]byte, error) {
	data, err := c.marshal.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal json: %w", err)
	}
	if len(data) > c.maxMessageSize {
		return nil, fmt.Errorf("%w: size %d, max %d", ErrFrameTooLarge, len(data), c.maxMessageSize)
	}
	return data, nil
}

func (c *JSONCodec) Decode(data []byte, msg proto.Message) error {
	if len(data) > c.maxMessageSize {
		return fmt.Errorf("%w: size %d, max %d", ErrFrameTooLarge, len(data), c.maxMessageSize)
	}
	if err := c.unmarshal.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("failed to unmarshal json: %w", err)
	}
	return nil
}

func (c *JSONCodec) MaxMessageSize() int {
	return c.maxMessageSize
}
