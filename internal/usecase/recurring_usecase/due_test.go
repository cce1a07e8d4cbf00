package recurring

import (
	"testing"
	"time"

	"fintrack/internal/domain/model"

	"github.com/stretchr/testify/assert"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNextExecutionDate(t *testing.T) {
	last := day(2024, 1, 31)

	cases := []struct {
		name     string
		freq     model.Frequency
		interval int
		want     time.Time
	}{
		{"daily", model.FrequencyDaily, 1, day(2024, 2, 1)},
		{"every 3 days", model.FrequencyDaily, 3, day(2024, 2, 3)},
		{"weekly", model.FrequencyWeekly, 1, day(2024, 2, 7)},
		{"biweekly", model.FrequencyWeekly, 2, day(2024, 2, 14)},
		//2月31日は3月2日に繰り越す（2024年はうるう年）
		{"monthly overflow", model.FrequencyMonthly, 1, day(2024, 3, 2)},
		{"quarterly", model.FrequencyMonthly, 3, day(2024, 5, 1)},
		{"yearly", model.FrequencyYearly, 1, day(2025, 1, 31)},
		{"zero interval treated as 1", model.FrequencyDaily, 0, day(2024, 2, 1)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NextExecutionDate(last, tc.freq, tc.interval))
		})
	}
}

func TestShouldExecute(t *testing.T) {
	ptr := func(t time.Time) *time.Time { return &t }

	cases := []struct {
		name string
		r    model.Recurring
		now  time.Time
		want bool
	}{
		{
			name: "never executed, on start date",
			r:    model.Recurring{Frequency: model.FrequencyMonthly, Interval: 1, StartDate: day(2024, 1, 1)},
			now:  day(2024, 1, 1).Add(9 * time.Hour),
			want: true,
		},
		{
			name: "never executed, before start",
			r:    model.Recurring{Frequency: model.FrequencyMonthly, Interval: 1, StartDate: day(2024, 1, 10)},
			now:  day(2024, 1, 9).Add(23 * time.Hour),
			want: false,
		},
		{
			name: "never executed, start in the past",
			r:    model.Recurring{Frequency: model.FrequencyMonthly, Interval: 1, StartDate: day(2024, 1, 1)},
			now:  day(2024, 1, 15),
			want: true,
		},
		{
			name: "executed today",
			r:    model.Recurring{Frequency: model.FrequencyDaily, Interval: 1, StartDate: day(2024, 1, 1), LastExecutedAt: ptr(day(2024, 1, 15).Add(8 * time.Hour))},
			now:  day(2024, 1, 15).Add(20 * time.Hour),
			want: false,
		},
		{
			name: "daily, next day",
			r:    model.Recurring{Frequency: model.FrequencyDaily, Interval: 1, StartDate: day(2024, 1, 1), LastExecutedAt: ptr(day(2024, 1, 15).Add(23 * time.Hour))},
			now:  day(2024, 1, 16).Add(time.Minute),
			want: true,
		},
		{
			name: "weekly, 6 days later",
			r:    model.Recurring{Frequency: model.FrequencyWeekly, Interval: 1, StartDate: day(2024, 1, 1), LastExecutedAt: ptr(day(2024, 1, 1))},
			now:  day(2024, 1, 7),
			want: false,
		},
		{
			name: "monthly, missed runs catch up once",
			r:    model.Recurring{Frequency: model.FrequencyMonthly, Interval: 1, StartDate: day(2024, 1, 1), LastExecutedAt: ptr(day(2024, 1, 15))},
			now:  day(2024, 6, 1),
			want: true,
		},
		{
			name: "yearly, not yet",
			r:    model.Recurring{Frequency: model.FrequencyYearly, Interval: 1, StartDate: day(2024, 1, 1), LastExecutedAt: ptr(day(2024, 3, 1))},
			now:  day(2025, 2, 28),
			want: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := tc.r
			assert.Equal(t, tc.want, ShouldExecute(&r, tc.now))
		})
	}
}

func TestAutoDescription(t *testing.T) {
	desc := "  Netflix "
	empty := " "

	assert.Equal(t, "[Auto] Netflix", autoDescription(&desc))
	assert.Equal(t, "[Auto] Transacción recurrente", autoDescription(&empty))
	assert.Equal(t, "[Auto] Transacción recurrente", autoDescription(nil))
}
