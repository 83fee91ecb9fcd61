// Package rediscontrol is the out-of-band control channel of spec.md §6:
// a Redis pub/sub pair standing in for the source's gRPC control service
// (no .proto or generated stubs exist anywhere in the retrieval pack, so
// gRPC was dropped in favor of the pack's own redis/go-redis client,
// grounded on go-coffee's tick_collector.go use of *redis.Client). Commands
// arrive as small JSON objects on CommandChannel; notifications are
// free-form strings published to NotifyChannel.
package rediscontrol

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"krw-trader/internal/trader"
)

type wireCommand struct {
	Type string `json:"type"`
}

// Control is both a trader.CommandSource and a trader.Notifier over a pair
// of Redis channels on the same connection.
type Control struct {
	log      *zap.SugaredLogger
	client   *redis.Client
	commandCh string
	notifyCh  string

	commands chan trader.Command
}

// New builds a Control with a Redis client for addr. It neither connects nor
// subscribes; Run subscribes to commandCh.
func New(log *zap.SugaredLogger, addr, commandCh, notifyCh string) *Control {
	return &Control{
		log:       log,
		client:    redis.NewClient(&redis.Options{Addr: addr}),
		commandCh: commandCh,
		notifyCh:  notifyCh,
		commands:  make(chan trader.Command, 16),
	}
}

// Commands implements trader.CommandSource.
func (c *Control) Commands() <-chan trader.Command {
	return c.commands
}

// Notify implements trader.Notifier. Publish errors are logged and
// swallowed: a dropped notification must never stall the trading loop.
func (c *Control) Notify(message string) {
	if err := c.client.Publish(context.Background(), c.notifyCh, message).Err(); err != nil {
		c.log.Warnw("rediscontrol: publish failed", "err", err)
	}
}

// Run subscribes to the command channel and decodes messages into
// trader.Command until ctx is canceled. Malformed payloads are logged and
// skipped rather than treated as fatal.
func (c *Control) Run(ctx context.Context) error {
	sub := c.client.Subscribe(ctx, c.commandCh)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			cmd, err := decode(msg.Payload)
			if err != nil {
				c.log.Warnw("rediscontrol: dropping malformed command", "payload", msg.Payload, "err", err)
				continue
			}
			select {
			case c.commands <- cmd:
			default:
				c.log.Warnw("rediscontrol: command buffer full, dropping", "type", cmd.Type)
			}
		}
	}
}

func decode(payload string) (trader.Command, error) {
	var wire wireCommand
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		return trader.Command{}, fmt.Errorf("decode command: %w", err)
	}

	switch trader.CommandType(wire.Type) {
	case trader.CommandPause, trader.CommandResume, trader.CommandShutdown,
		trader.CommandPortfolioStatus, trader.CommandStrategyPerformance:
		return trader.Command{Type: trader.CommandType(wire.Type)}, nil
	default:
		return trader.Command{}, fmt.Errorf("unknown command type %q", wire.Type)
	}
}

// Close releases the underlying Redis connection.
func (c *Control) Close() error {
	return c.client.Close()
}
