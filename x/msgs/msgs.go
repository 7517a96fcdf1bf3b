// Package msgs defines the payloads exchanged on the bus and their structpb mapping.
package msgs

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"google.golang.org/protobuf/types/known/structpb"
)

// ModeUpdate carries the vehicle's high-level mode.
type ModeUpdate struct {
	State string `mapstructure:"state"`
}

// SignalsDetection is the LED-signal detector's view of the intersection.
// Front is the vehicle across the intersection; Left is reported but unused.
type SignalsDetection struct {
	Front             string `mapstructure:"front"`
	Right             string `mapstructure:"right"`
	Left              string `mapstructure:"left"`
	TrafficLightState string `mapstructure:"traffic_light_state"`
}

type TagInfo struct {
	ID              int `mapstructure:"id"`
	TrafficSignType int `mapstructure:"traffic_sign_type"`
}

// AprilTagsWithInfos is one batch of detected AprilTags.
type AprilTagsWithInfos struct {
	Infos []TagInfo `mapstructure:"infos"`
}

// SignTypes returns the sign types in detection order.
func (a AprilTagsWithInfos) SignTypes() []int {
	out := make([]int, len(a.Infos))
	for i, info := range a.Infos {
		out[i] = info.TrafficSignType
	}
	return out
}

type CoordinationClearance struct {
	Status int `mapstructure:"status"`
}

type BoolStamped struct {
	Stamp     time.Time `mapstructure:"stamp"`
	Data      bool      `mapstructure:"data"`
	EpisodeID string    `mapstructure:"episode_id"`
}

type Twist2DStamped struct {
	Stamp time.Time `mapstructure:"stamp"`
	V     float64   `mapstructure:"v"`
	Omega float64   `mapstructure:"omega"`
}

type String struct {
	Data string `mapstructure:"data"`
}

func (m ModeUpdate) Struct() *structpb.Struct {
	return mustStruct(map[string]any{"state": m.State})
}

func (m SignalsDetection) Struct() *structpb.Struct {
	return mustStruct(map[string]any{
		"front":               m.Front,
		"right":               m.Right,
		"left":                m.Left,
		"traffic_light_state": m.TrafficLightState,
	})
}

func (m AprilTagsWithInfos) Struct() *structpb.Struct {
	infos := make([]any, len(m.Infos))
	for i, info := range m.Infos {
		infos[i] = map[string]any{"id": info.ID, "traffic_sign_type": info.TrafficSignType}
	}
	return mustStruct(map[string]any{"infos": infos})
}

func (m CoordinationClearance) Struct() *structpb.Struct {
	return mustStruct(map[string]any{"status": m.Status})
}

func (m BoolStamped) Struct() *structpb.Struct {
	fields := map[string]any{"stamp": stamp(m.Stamp), "data": m.Data}
	if m.EpisodeID != "" {
		fields["episode_id"] = m.EpisodeID
	}
	return mustStruct(fields)
}

func (m Twist2DStamped) Struct() *structpb.Struct {
	return mustStruct(map[string]any{"stamp": stamp(m.Stamp), "v": m.V, "omega": m.Omega})
}

func (m String) Struct() *structpb.Struct {
	return mustStruct(map[string]any{"data": m.Data})
}

// Decode maps a payload onto T. Numbers and booleans are weakly typed, stamps are RFC3339Nano strings.
func Decode[T any](payload *structpb.Struct) (T, error) {
	var out T
	if payload == nil {
		return out, fmt.Errorf("msgs: decode %T: nil payload", out)
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
	})
	if err != nil {
		return out, fmt.Errorf("msgs: decoder for %T: %w", out, err)
	}
	if err := dec.Decode(payload.AsMap()); err != nil {
		return out, fmt.Errorf("msgs: decode %T: %w", out, err)
	}
	return out, nil
}

func stamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// mustStruct panics only on values structpb cannot represent, which the callers above never build.
func mustStruct(fields map[string]any) *structpb.Struct {
	s, err := structpb.NewStruct(fields)
	if err != nil {
		panic(fmt.Sprintf("msgs: %v", err))
	}
	return s
}
