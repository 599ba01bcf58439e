package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"FinTrend/internal/domain/models"
	domrepo "FinTrend/internal/domain/repository"
	domsvc "FinTrend/internal/domain/service"
	pkgkafka "FinTrend/pkg/kafka"
	"FinTrend/pkg/logger"
)

// KafkaRequestsHandler runs decompositions requested over Kafka. Results
// leave through the publisher configured on the use case.
type KafkaRequestsHandler struct {
	topic     string
	decompose *DecomposeUseCase
	metrics   domrepo.Metrics
	logger    *logger.Logger
}

func NewKafkaRequestsHandler(topic string, decompose *DecomposeUseCase, metrics domrepo.Metrics, l *logger.Logger) *KafkaRequestsHandler {
	if l == nil {
		l = logger.Nop()
	}
	return &KafkaRequestsHandler{topic: topic, decompose: decompose, metrics: metrics, logger: l}
}

func (h *KafkaRequestsHandler) Topic() string { return h.topic }

// incoming message schema: {symbols, n, tf} or {dataset}
func (h *KafkaRequestsHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		Symbols []string        `json:"symbols"`
		N       int             `json:"n"`
		TF      string          `json:"tf"`
		Dataset *models.Dataset `json:"dataset"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.recordError("consumer_unmarshal")
		return fmt.Errorf("decode request: %w", err)
	}

	var run *models.BatchRun
	var err error
	switch {
	case m.Dataset != nil:
		run, err = h.decompose.DecomposeDataset(ctx, m.Dataset)
	case len(m.Symbols) > 0:
		run, err = h.decompose.DecomposeSymbols(ctx, DecomposeSymbolsParams{
			Symbols:   m.Symbols,
			N:         m.N,
			Timeframe: domrepo.NormalizeTimeframe(m.TF),
		})
	default:
		h.recordError("consumer_empty")
		h.logger.Warn("decompose request without symbols or dataset")
		return nil
	}
	if err != nil {
		if domsvc.IsUnavailable(err) {
			// Permanent for this process; retrying cannot help.
			h.recordError("consumer_unavailable")
			return nil
		}
		h.recordError("consumer_decompose")
		return err
	}
	h.logger.Debug("decompose request processed",
		logger.String("run_id", run.ID.String()),
		logger.Int("results", run.Results.Len()),
	)
	return nil
}

func (h *KafkaRequestsHandler) recordError(kind string) {
	if h.metrics != nil {
		h.metrics.RecordError(kind)
	}
}

var _ pkgkafka.MessageHandler = (*KafkaRequestsHandler)(nil)
