package codec

import (
	"errors"

	"google.golang.org/protobuf/proto"
)

var (
	// ErrFrameTooLarge is returned when a payload exceeds the codec's size limit.
	ErrFrameTooLarge = errors.New("codec: frame exceeds max message size")
	// ErrShortFrame is returned when a frame is shorter than its length prefix claims.
	ErrShortFrame = errors.New("codec: data too short")
)

// Codec turns bus envelopes into bytes and back.
type Codec interface {
	Encode(msg proto.Message) ([]byte, error)
	Decode(data []byte, msg proto.Message) error
	MaxMessageSize() int
}

// Registry holds the codecs a bus can be configured with, keyed by name.
type Registry interface {
	Register(name string, codec Codec)
	Get(name string) (Codec, bool)
	Default() Codec
	Names() []string
}
