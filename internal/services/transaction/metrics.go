package transaction

import (
	"time"

	"stase/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NoopMetricsCollector is a no-op implementation of MetricsCollector
type NoopMetricsCollector struct{}

func (n *NoopMetricsCollector) RecordOperationDuration(string, time.Duration) {}

func (n *NoopMetricsCollector) RecordOperationResult(string, string) {}

func (n *NoopMetricsCollector) RecordBalanceChange(uuid.UUID, models.Currency, decimal.Decimal, decimal.Decimal) {
}

func (n *NoopMetricsCollector) RecordError(string, string) {}

func (n *NoopMetricsCollector) RecordRetry(string, int) {}

func (n *NoopMetricsCollector) RecordTransactionVolume(models.Currency, decimal.Decimal) {}
