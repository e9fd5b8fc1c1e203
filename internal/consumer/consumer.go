// Package consumer applies node updates received from a message broker.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/storygraph/internal/apperr"
	"github.com/starford/storygraph/internal/models"
	"github.com/starford/storygraph/internal/nodemanager"
)

// Message is one record taken from the broker.
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
}

// Source delivers batches of messages. Commit acknowledges every message
// returned by Poll so far.
type Source interface {
	Poll(ctx context.Context) ([]Message, error)
	Commit(ctx context.Context) error
	Close()
}

// UpdateMessage is the JSON body of an update record. ID falls back to the
// record key when empty.
type UpdateMessage struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	ContentText string `json:"contentText"`
}

// Consumer turns every message into one Manager.Update call.
type Consumer struct {
	src    Source
	mgr    nodemanager.Manager
	logger *slog.Logger
}

// New creates a Consumer.
func New(src Source, mgr nodemanager.Manager, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{src: src, mgr: mgr, logger: logger}
}

// Run polls until ctx is cancelled. A batch is committed only after all its
// messages were handled; a failing update stops Run with the batch
// uncommitted so the broker redelivers it.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.src.Close()
	for {
		msgs, err := c.src.Poll(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return fmt.Errorf("consumer: poll: %w", err)
		}
		for _, msg := range msgs {
			if err := c.Handle(ctx, msg); err != nil {
				return err
			}
		}
		if len(msgs) == 0 {
			continue
		}
		if err := c.src.Commit(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("consumer: commit: %w", err)
		}
	}
}

// Handle applies one message. Malformed messages, unknown nodes and invalid
// drafts are logged and skipped.
func (c *Consumer) Handle(ctx context.Context, msg Message) error {
	log := c.logger.With("topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)

	var upd UpdateMessage
	if err := json.Unmarshal(msg.Value, &upd); err != nil {
		log.Warn("skipping malformed update message", "error", err)
		return nil
	}
	if strings.TrimSpace(upd.ID) == "" {
		upd.ID = string(msg.Key)
	}

	node, err := c.mgr.Update(ctx, upd.ID, models.NodeDraft{Title: upd.Title, Text: upd.ContentText})
	switch {
	case err == nil:
		log.Debug("node updated from message", "id", node.ID.String())
		return nil
	case errors.Is(err, apperr.ErrNotFound), errors.Is(err, apperr.ErrInvalidArgument):
		log.Warn("skipping update message", "id", upd.ID, "error", err)
		return nil
	default:
		return fmt.Errorf("consumer: update %s: %w", upd.ID, err)
	}
}
