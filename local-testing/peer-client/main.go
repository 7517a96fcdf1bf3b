package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/compose-network/intersection-coordinator/x/bus"
	"github.com/compose-network/intersection-coordinator/x/msgs"
)

// peer-client plays the perception side of a vehicle against a coordinator running with the redis bus.
type commandFlags struct {
	redisAddr string
	prefix    string
	codec     string
	senderID  string
	action    string

	mode     string
	signs    string
	right    string
	front    string
	tlState  string
	watchFor time.Duration
}

func main() {
	flags := parseFlags()

	if err := run(flags); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() commandFlags {
	var flags commandFlags
	flag.StringVar(&flags.redisAddr, "redis-addr", "127.0.0.1:6379", "Redis endpoint shared with the coordinator")
	flag.StringVar(&flags.prefix, "channel-prefix", bus.DefaultChannelPrefix, "Redis channel prefix")
	flag.StringVar(&flags.codec, "codec", "protobuf", "Envelope codec: protobuf|json")
	flag.StringVar(&flags.senderID, "sender-id", "peer-client", "Sender identifier")
	flag.StringVar(&flags.action, "action", "", "Action to perform: mode|apriltags|signals|watch")

	flag.StringVar(&flags.mode, "mode", "COORDINATION", "Mode for -action mode")
	flag.StringVar(&flags.signs, "signs", "76", "Comma separated traffic sign types for -action apriltags")
	flag.StringVar(&flags.right, "right", "no_car", "Right vehicle signal for -action signals")
	flag.StringVar(&flags.front, "front", "no_car", "Opposite vehicle signal for -action signals")
	flag.StringVar(&flags.tlState, "tl", "", "Traffic light state for -action signals (tl_go|tl_stop)")
	flag.DurationVar(&flags.watchFor, "watch", 0, "Print coordinator outputs for this long after sending")

	flag.Parse()

	if flags.action == "" {
		flag.Usage()
		fmt.Fprintln(os.Stderr, "\nmissing required flag: -action")
		os.Exit(2)
	}

	return flags
}

func run(cfg commandFlags) error {
	logger := zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}).Level(zerolog.InfoLevel).With().Timestamp().Logger()

	busCfg := bus.DefaultConfig(logger)
	busCfg.Driver = bus.DriverRedis
	busCfg.Codec = cfg.codec
	busCfg.SenderID = cfg.senderID
	busCfg.Redis.Addr = cfg.redisAddr
	busCfg.Redis.ChannelPrefix = cfg.prefix

	b, err := bus.New(busCfg)
	if err != nil {
		return err
	}

	watch := cfg.watchFor
	if cfg.action == "watch" && watch == 0 {
		watch = 10 * time.Second
	}
	if watch > 0 {
		for _, topic := range []string{
			msgs.TopicClearanceToGo,
			msgs.TopicIntersectionGo,
			msgs.TopicChangeColorPattern,
			msgs.TopicCoordinationState,
		} {
			b.Subscribe(topic, printer(logger))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), watch+5*time.Second)
	defer cancel()

	if err := b.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = b.Stop(context.Background()) }()

	topic, payload, err := buildMessage(cfg)
	if err != nil {
		return err
	}
	if payload != nil {
		if err := b.Publish(ctx, topic, payload); err != nil {
			return fmt.Errorf("publish %s: %w", topic, err)
		}
		logger.Info().Str("topic", topic).Msg("Message sent")
	}

	if watch > 0 {
		select {
		case <-time.After(watch):
		case <-ctx.Done():
		}
	}
	return nil
}

func buildMessage(cfg commandFlags) (string, *structpb.Struct, error) {
	switch cfg.action {
	case "mode":
		return msgs.TopicMode, msgs.ModeUpdate{State: cfg.mode}.Struct(), nil
	case "apriltags":
		tags := msgs.AprilTagsWithInfos{}
		for i, raw := range strings.Split(cfg.signs, ",") {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			sign, err := strconv.Atoi(raw)
			if err != nil {
				return "", nil, fmt.Errorf("invalid sign type %q: %w", raw, err)
			}
			tags.Infos = append(tags.Infos, msgs.TagInfo{ID: i, TrafficSignType: sign})
		}
		return msgs.TopicAprilTags, tags.Struct(), nil
	case "signals":
		return msgs.TopicSignalsDetection, msgs.SignalsDetection{
			Front:             cfg.front,
			Right:             cfg.right,
			TrafficLightState: cfg.tlState,
		}.Struct(), nil
	case "watch":
		return "", nil, nil
	default:
		return "", nil, errors.New("unknown action: " + cfg.action)
	}
}

func printer(logger zerolog.Logger) bus.Handler {
	return func(_ context.Context, msg bus.Message) error {
		logger.Info().
			Str("topic", msg.Topic).
			Str("from", msg.SenderID).
			Interface("payload", msg.Payload.AsMap()).
			Msg("Coordinator output")
		return nil
	}
}
