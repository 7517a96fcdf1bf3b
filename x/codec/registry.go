package codec

import (
	"sort"
	"sync"
)

const (
	NameProtobuf = "protobuf"
	NameJSON     = "json"

	// DefaultMaxMessageSize bounds a single envelope. Intersection messages are a few hundred bytes.
	DefaultMaxMessageSize = 64 * 1024
)

type registry struct {
	mu          sync.RWMutex
	codecs      map[string]Codec
	defaultName string
}

// NewRegistry returns a registry holding the protobuf codec (the default) and the json codec.
func NewRegistry() Registry {
	r := &registry{
		codecs:      make(map[string]Codec),
		defaultName: NameProtobuf,
	}
	r.Register(NameProtobuf, NewProtobufCodec(DefaultMaxMessageSize))
	r.Register(NameJSON, NewJSONCodec(DefaultMaxMessageSize))
	return r
}

func (r *registry) Register(name string, codec Codec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codecs[name] = codec
}

func (r *registry) Get(name string) (Codec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	codec, exists := r.codecs[name]
	return codec, exists
}

func (r *registry) Default() Codec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.codecs[r.defaultName]
}

func (r *registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.codecs))
	for name := range r.codecs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
