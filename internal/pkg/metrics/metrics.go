package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// SnapshotRefreshTotal 按结果统计快照刷新次数（success / failed / skipped）。
	SnapshotRefreshTotal *prometheus.CounterVec

	// SnapshotRecords 当前快照中的记录数。
	SnapshotRecords prometheus.Gauge

	// CategoryAveragePrice 每个分类的均价。
	CategoryAveragePrice *prometheus.GaugeVec

	// AlertRulesTriggeredTotal 累计触发的告警规则数。
	AlertRulesTriggeredTotal prometheus.Counter

	// AlertPersistFailedTotal 规则持久化失败次数。
	AlertPersistFailedTotal prometheus.Counter

	// SubmissionDuplicatePreventedTotal 被去重拦截的重复提交数。
	SubmissionDuplicatePreventedTotal prometheus.Counter

	// RateLimitWaitDuration 限流等待时长分布。
	RateLimitWaitDuration prometheus.Histogram

	// RateLimitTimeoutTotal 限流等待超时次数。
	RateLimitTimeoutTotal prometheus.Counter

	initOnce sync.Once
)

// InitMetrics 注册所有 Prometheus 指标（幂等）。
func InitMetrics() {
	initOnce.Do(func() {
		SnapshotRefreshTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pricesaver",
			Name:      "snapshot_refresh_total",
			Help:      "Snapshot refreshes by outcome.",
		}, []string{"outcome"})

		SnapshotRecords = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pricesaver",
			Name:      "snapshot_records",
			Help:      "Number of price records in the current snapshot.",
		})

		CategoryAveragePrice = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "pricesaver",
			Name:      "category_average_price",
			Help:      "Average approved price per category.",
		}, []string{"category"})

		AlertRulesTriggeredTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pricesaver",
			Name:      "alert_rules_triggered_total",
			Help:      "Alert rules newly triggered by evaluation.",
		})

		AlertPersistFailedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pricesaver",
			Name:      "alert_persist_failed_total",
			Help:      "Failed persists of alert rule sets.",
		})

		SubmissionDuplicatePreventedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pricesaver",
			Name:      "submission_duplicate_prevented_total",
			Help:      "Price submissions rejected as duplicates.",
		})

		RateLimitWaitDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pricesaver",
			Name:      "ratelimit_wait_seconds",
			Help:      "Time spent waiting for a rate limit token.",
			Buckets:   prometheus.DefBuckets,
		})

		RateLimitTimeoutTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pricesaver",
			Name:      "ratelimit_timeout_total",
			Help:      "Rate limit waits canceled before acquiring a token.",
		})

		prometheus.MustRegister(
			SnapshotRefreshTotal,
			SnapshotRecords,
			CategoryAveragePrice,
			AlertRulesTriggeredTotal,
			AlertPersistFailedTotal,
			SubmissionDuplicatePreventedTotal,
			RateLimitWaitDuration,
			RateLimitTimeoutTotal,
		)
	})
}
