package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/yungbote/edusight-backend/internal/notify"
)

var _ notify.Publisher = (*Client)(nil)

// Publish hands n to subscribers of the notification channel.
func (c *Client) Publish(ctx context.Context, n notify.Notification) error {
	if c == nil || c.rdb == nil {
		return fmt.Errorf("redis notification bus not initialized")
	}
	raw, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return c.rdb.Publish(ctx, c.channel, raw).Err()
}

// StartForwarder subscribes to the notification channel and calls onMsg for
// each notification until ctx ends.
func (c *Client) StartForwarder(ctx context.Context, onMsg func(n notify.Notification)) error {
	if c == nil || c.rdb == nil {
		return fmt.Errorf("redis notification bus not initialized")
	}
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}

	sub := c.rdb.Subscribe(ctx, c.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					_ = sub.Close()
					return
				}
				var n notify.Notification
				if err := json.Unmarshal([]byte(m.Payload), &n); err != nil {
					c.log.Warn("bad redis notification payload", "error", err)
					continue
				}
				onMsg(n)
			}
		}
	}()
	return nil
}
