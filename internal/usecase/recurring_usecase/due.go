package recurring

import (
	"time"

	"fintrack/internal/domain/model"
)

// 日付はUTCの暦日で比較する
func truncateToDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NextExecutionDate は last から interval 単位だけ進めた日時。
// 月・年は暦で加算する（1/31 + 1ヶ月は3月に繰り越す）。
func NextExecutionDate(last time.Time, freq model.Frequency, interval int) time.Time {
	if interval < 1 {
		interval = 1
	}
	switch freq {
	case model.FrequencyDaily:
		return last.AddDate(0, 0, interval)
	case model.FrequencyWeekly:
		return last.AddDate(0, 0, 7*interval)
	case model.FrequencyMonthly:
		return last.AddDate(0, interval, 0)
	case model.FrequencyYearly:
		return last.AddDate(interval, 0, 0)
	default:
		return last.AddDate(0, 0, interval)
	}
}

// ShouldExecute は now の暦日に実行すべきかを判定する。
// 永続化された状態だけから決まるので、同じ日に何度呼んでも結果は変わらない。
func ShouldExecute(r *model.Recurring, now time.Time) bool {
	today := truncateToDay(now)

	if r.LastExecutedAt == nil {
		return !today.Before(truncateToDay(r.StartDate))
	}

	next := truncateToDay(NextExecutionDate(*r.LastExecutedAt, r.Frequency, r.Interval))
	return !today.Before(next)
}
