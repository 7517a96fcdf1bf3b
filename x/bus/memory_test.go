package bus

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

func newTestMemoryBus(t *testing.T) *MemoryBus {
	t.Helper()
	cfg := DefaultConfig(zerolog.Nop())
	cfg.SenderID = "node-1"
	b, err := NewMemoryBus(cfg)
	require.NoError(t, err)
	return b
}

func TestMemoryBusDeliversSynchronously(t *testing.T) {
	t.Parallel()

	b := newTestMemoryBus(t)
	var got []Message
	b.Subscribe("mode", func(_ context.Context, msg Message) error {
		got = append(got, msg)
		return nil
	})
	require.NoError(t, b.Start(context.Background()))

	payload, err := structpb.NewStruct(map[string]any{"state": "COORDINATION"})
	require.NoError(t, err)
	require.NoError(t, b.Publish(context.Background(), "mode", payload))

	require.Len(t, got, 1)
	require.Equal(t, "mode", got[0].Topic)
	require.Equal(t, "node-1", got[0].SenderID)
	require.Equal(t, "COORDINATION", got[0].Payload.GetFields()["state"].GetStringValue())
	require.False(t, got[0].Stamp.IsZero())
}

func TestMemoryBusIgnoresUnsubscribedTopicsAndHandlerErrors(t *testing.T) {
	t.Parallel()

	b := newTestMemoryBus(t)
	b.Subscribe("mode", func(context.Context, Message) error { return errors.New("bad payload") })
	require.NoError(t, b.Start(context.Background()))

	require.NoError(t, b.Publish(context.Background(), "nobody_listens", nil))
	require.NoError(t, b.Publish(context.Background(), "mode", nil))
}

func TestMemoryBusClosed(t *testing.T) {
	t.Parallel()

	b := newTestMemoryBus(t)
	require.ErrorIs(t, b.Publish(context.Background(), "mode", nil), ErrBusClosed)

	require.NoError(t, b.Start(context.Background()))
	require.NoError(t, b.Stop(context.Background()))
	require.ErrorIs(t, b.Publish(context.Background(), "mode", nil), ErrBusClosed)
}

func TestNewRejectsUnknownDriverAndCodec(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig(zerolog.Nop())
	cfg.Driver = "carrier-pigeon"
	_, err := New(cfg)
	require.Error(t, err)

	cfg = DefaultConfig(zerolog.Nop())
	cfg.Codec = "xml"
	_, err = New(cfg)
	require.ErrorContains(t, err, "unknown codec")

	b, err := New(DefaultConfig(zerolog.Nop()))
	require.NoError(t, err)
	require.NotEmpty(t, b.SenderID(), "sender id defaults to a fresh uuid")
}
