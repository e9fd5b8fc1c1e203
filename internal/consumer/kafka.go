package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaConfig selects the brokers, topic and consumer group.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	Group   string
}

// KafkaSource is a Source reading one topic as a member of a consumer group.
// Offsets are committed manually. Rebalances are held back between a Poll and
// the next one so a batch is committed by the member that fetched it.
type KafkaSource struct {
	client *kgo.Client
	logger *slog.Logger
}

var _ Source = (*KafkaSource)(nil)

// NewKafkaSource creates the group client. Connections are established
// lazily on the first poll.
func NewKafkaSource(cfg KafkaConfig, logger *slog.Logger, opts ...kgo.Opt) (*KafkaSource, error) {
	if logger == nil {
		logger = slog.Default()
	}
	base := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.Group),
		kgo.ConsumeTopics(cfg.Topic),
		kgo.DisableAutoCommit(),
		kgo.BlockRebalanceOnPoll(),
	}
	client, err := kgo.NewClient(append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("consumer: kafka client: %w", err)
	}
	return &KafkaSource{client: client, logger: logger}, nil
}

// Poll returns the next batch. Partition errors the client recovers from on
// its own are logged and the records fetched alongside them are still
// returned.
func (k *KafkaSource) Poll(ctx context.Context) ([]Message, error) {
	k.client.AllowRebalance()

	fetches := k.client.PollFetches(ctx)
	if fetches.IsClientClosed() {
		return nil, kgo.ErrClientClosed
	}
	var errs []error
	for _, fe := range fetches.Errors() {
		if errors.Is(fe.Err, context.Canceled) || errors.Is(fe.Err, context.DeadlineExceeded) {
			return nil, fe.Err
		}
		if isFatal(fe.Err) {
			errs = append(errs, fmt.Errorf("%s[%d]: %w", fe.Topic, fe.Partition, fe.Err))
			continue
		}
		k.logger.Warn("kafka fetch error",
			slog.String("topic", fe.Topic),
			slog.Int("partition", int(fe.Partition)),
			slog.String("error", fe.Err.Error()))
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	msgs := make([]Message, 0, fetches.NumRecords())
	fetches.EachRecord(func(r *kgo.Record) {
		msgs = append(msgs, Message{
			Topic:     r.Topic,
			Partition: r.Partition,
			Offset:    r.Offset,
			Key:       r.Key,
			Value:     r.Value,
		})
	})
	return msgs, nil
}

// Commit commits every record returned by Poll. A commit lost to a group
// rebalance is logged and dropped; the new owner redelivers those records.
func (k *KafkaSource) Commit(ctx context.Context) error {
	err := k.client.CommitUncommittedOffsets(ctx)
	if err == nil || ctx.Err() != nil || isFatal(err) {
		return err
	}
	k.logger.Warn("kafka commit failed, records will be redelivered",
		slog.String("error", err.Error()))
	return nil
}

func (k *KafkaSource) Close() {
	k.client.AllowRebalance()
	k.client.Close()
}

// isFatal reports whether err stops the consumer. Broker errors marked
// non-retriable stop it, except the ones a group member sees while the
// group rebalances. Everything else, data loss notices and transport
// errors included, is retried by the client.
func isFatal(err error) bool {
	if errors.Is(err, kgo.ErrClientClosed) {
		return true
	}
	var session *kgo.ErrGroupSession
	if errors.As(err, &session) {
		return false
	}
	var ke *kerr.Error
	if !errors.As(err, &ke) {
		return false
	}
	switch ke {
	case kerr.RebalanceInProgress, kerr.IllegalGeneration, kerr.UnknownMemberID:
		return false
	}
	return !ke.Retriable
}
