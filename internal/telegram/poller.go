package telegram

import (
	"context"
	"errors"
	"time"

	"github.com/dentalisa/clinic-booking-bot/pkg/logging"
)

// UpdateHandler processes one inbound update. Implementations must be safe
// for concurrent use: each update runs in its own goroutine so one slow
// conversation never blocks the rest.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, upd Update)
}

// Poller drives the getUpdates long-poll loop.
type Poller struct {
	client  *Client
	handler UpdateHandler
	timeout time.Duration
	logger  *logging.Logger
}

func NewPoller(client *Client, handler UpdateHandler, timeout time.Duration, logger *logging.Logger) *Poller {
	if logger == nil {
		logger = logging.Default()
	}
	return &Poller{
		client:  client,
		handler: handler,
		timeout: timeout,
		logger:  logger,
	}
}

// Run polls until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	var offset int64

	for {
		if ctx.Err() != nil {
			return
		}

		updates, err := p.client.GetUpdates(ctx, offset, p.timeout)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			p.logger.Error("getUpdates failed", "error", err)

			select {
			case <-ctx.Done():
				return
			case <-time.After(2 * time.Second):
			}
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			go p.handler.HandleUpdate(ctx, upd)
		}
	}
}
