package msgs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestDecodeSignalsDetection(t *testing.T) {
	t.Parallel()

	in := SignalsDetection{Front: "no_car", Right: "car_signal_A", Left: "car_signal_C", TrafficLightState: "tl_stop"}
	out, err := Decode[SignalsDetection](in.Struct())
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecodeAprilTagsFromFloatNumbers(t *testing.T) {
	t.Parallel()

	payload, err := structpb.NewStruct(map[string]any{
		"infos": []any{
			map[string]any{"id": 12.0, "traffic_sign_type": 5.0},
			map[string]any{"id": 13.0, "traffic_sign_type": 76.0},
		},
	})
	require.NoError(t, err)

	tags, err := Decode[AprilTagsWithInfos](payload)
	require.NoError(t, err)
	assert.Equal(t, []int{5, 76}, tags.SignTypes())

	empty, err := Decode[AprilTagsWithInfos](AprilTagsWithInfos{}.Struct())
	require.NoError(t, err)
	assert.Empty(t, empty.SignTypes())
}

func TestDecodeWeaklyTypedAndStamped(t *testing.T) {
	t.Parallel()

	stampedAt := time.Date(2024, 3, 9, 10, 11, 12, 500, time.UTC)

	b, err := Decode[BoolStamped](BoolStamped{Stamp: stampedAt, Data: true, EpisodeID: "e-1"}.Struct())
	require.NoError(t, err)
	assert.True(t, b.Data)
	assert.True(t, stampedAt.Equal(b.Stamp))
	assert.Equal(t, "e-1", b.EpisodeID)

	payload, err := structpb.NewStruct(map[string]any{"status": "1"})
	require.NoError(t, err)
	c, err := Decode[CoordinationClearance](payload)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Status)

	tw, err := Decode[Twist2DStamped](Twist2DStamped{Stamp: stampedAt}.Struct())
	require.NoError(t, err)
	assert.Zero(t, tw.V)
	assert.Zero(t, tw.Omega)
}

func TestDecodeErrors(t *testing.T) {
	t.Parallel()

	_, err := Decode[ModeUpdate](nil)
	require.Error(t, err)

	payload, err := structpb.NewStruct(map[string]any{"infos": "not a list"})
	require.NoError(t, err)
	_, err = Decode[AprilTagsWithInfos](payload)
	require.Error(t, err)

	payload, err = structpb.NewStruct(map[string]any{"stamp": "last tuesday"})
	require.NoError(t, err)
	_, err = Decode[BoolStamped](payload)
	require.Error(t, err)
}
