package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"FinTrend/internal/domain/models"
	domrepo "FinTrend/internal/domain/repository"
	pkgkafka "FinTrend/pkg/kafka"
)

// SeriesResultEvent is the record published per series of a run.
type SeriesResultEvent struct {
	RunID     uuid.UUID               `json:"run_id"`
	Series    string                  `json:"series"`
	StartedAt time.Time               `json:"started_at"`
	Result    models.EstimationResult `json:"result"`
}

// KafkaResultPublisher publishes one message per series, keyed by series
// name so results for a series stay ordered within a partition.
type KafkaResultPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaResultPublisher(producer *pkgkafka.Producer, topic string) *KafkaResultPublisher {
	return &KafkaResultPublisher{producer: producer, topic: topic}
}

func (p *KafkaResultPublisher) PublishRun(ctx context.Context, run *models.BatchRun) error {
	if run == nil || run.Results == nil || run.Results.Len() == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, 0, run.Results.Len())
	run.Results.Each(func(name string, r models.EstimationResult) bool {
		msgs = append(msgs, pkgkafka.Message{
			Key: []byte(name),
			Value: SeriesResultEvent{
				RunID:     run.ID,
				Series:    name,
				StartedAt: run.StartedAt,
				Result:    r,
			},
		})
		return true
	})
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaResultPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

var _ domrepo.ResultPublisher = (*KafkaResultPublisher)(nil)
