package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 結果ラベル
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultSkipped = "skipped"
)

var (
	// 認証イベント（register/login/refresh/verify/logout）
	AuthEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fintrack_auth_events_total",
		Help: "The total number of authentication events by event and result",
	}, []string{"event", "result"})

	// リフレッシュトークンの再利用検知
	RefreshReuseDetectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fintrack_refresh_reuse_detected_total",
		Help: "The total number of refresh token reuse detections",
	})

	// 定期取引の処理結果
	RecurringRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fintrack_recurring_runs_total",
		Help: "The total number of recurring evaluations by result",
	}, []string{"result"})

	// 期限切れ掃除で削除した件数
	CleanupDeletedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fintrack_cleanup_deleted_total",
		Help: "The total number of expired rows deleted by kind",
	}, []string{"kind"})

	// スケジューラ1回分の所要時間
	SchedulerPassDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fintrack_scheduler_pass_duration_seconds",
		Help:    "The duration of a full recurring scheduler pass in seconds",
		Buckets: prometheus.DefBuckets,
	})
)

func AuthEvent(event string, err error) {
	result := ResultSuccess
	if err != nil {
		result = ResultFailure
	}
	AuthEventsTotal.WithLabelValues(event, result).Inc()
}
