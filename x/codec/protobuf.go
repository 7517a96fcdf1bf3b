package codec

import (
	"encoding/binary"
	"fmt"
	"math"

	"google.golang.org/protobuf/proto"
)

const prefixLen = 4

// ProtobufCodec frames binary protobuf payloads behind a big-endian uint32 length prefix.
type ProtobufCodec struct {
	maxMessageSize int
}

func NewProtobufCodec(maxMessageSize int) *ProtobufCodec {
	return &ProtobufCodec{maxMessageSize: maxMessageSize}
}

// Encode marshals msg and prepends its length.
func (c *ProtobufCodec) Encode(msg proto.Message) ([]byte, error) {
	size := proto.Size(msg)
	if size > c.maxMessageSize || size > math.MaxUint32 {
		return nil, fmt.Errorf("%w: size %d, max %d", ErrFrameTooLarge, size, c.maxMessageSize)
	}

	frame, err := proto.MarshalOptions{}.MarshalAppend(make([]byte, prefixLen, prefixLen+size), msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal: %w", err)
	}
	binary.BigEndian.PutUint32(frame[:prefixLen], uint32(len(frame)-prefixLen))
	return frame, nil
}

// Decode reads one length-prefixed frame into msg. Trailing bytes are ignored.
func (c *ProtobufCodec) Decode(data []byte, msg proto.Message) error {
	if len(data) < prefixLen {
		return fmt.Errorf("%w for length prefix", ErrShortFrame)
	}

	length := int(binary.BigEndian.Uint32(data[:prefixLen]))
	if length > c.maxMessageSize {
		return fmt.Errorf("%w: size %d, max %d", ErrFrameTooLarge, length, c.maxMessageSize)
	}
	if len(data)-prefixLen < length {
		return fmt.Errorf("%w for claimed length %d", ErrShortFrame, length)
	}

	if err := proto.Unmarshal(data[prefixLen:prefixLen+length], msg); err != nil {
		return fmt.Errorf("failed to unmarshal: %w", err)
	}
	return nil
}

func (c *ProtobufCodec) MaxMessageSize() int {
	return c.maxMessageSize
}
