package contacts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWindowFromSameMonth(t *testing.T) {
	today := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	months, days := windowFrom(today, 3)
	require.Equal(t, []int{3}, months)
	require.Equal(t, []int{10, 11, 12, 13}, days)
}

func TestWindowFromCrossesMonthBoundary(t *testing.T) {
	today := time.Date(2024, 3, 30, 0, 0, 0, 0, time.UTC)

	months, days := windowFrom(today, 3)
	require.Equal(t, []int{3, 4}, months)
	require.Equal(t, []int{1, 2, 30, 31}, days)
}

func TestWindowFromZeroDaysIsToday(t *testing.T) {
	today := time.Date(2024, 7, 4, 0, 0, 0, 0, time.UTC)

	months, days := windowFrom(today, 0)
	require.Equal(t, []int{7}, months)
	require.Equal(t, []int{4}, days)
}

func TestWindowFromCrossesYearBoundary(t *testing.T) {
	today := time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC)

	months, days := windowFrom(today, 4)
	require.Equal(t, []int{1, 12}, months)
	require.Equal(t, []int{1, 2, 3, 30, 31}, days)
}

func TestWindowFromLeapFebruary(t *testing.T) {
	// 2024 is a leap year: Feb 28, Feb 29, Mar 1.
	today := time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC)

	months, days := windowFrom(today, 2)
	require.Equal(t, []int{2, 3}, months)
	require.Equal(t, []int{1, 28, 29}, days)
}

func TestFutureWindowContainsToday(t *testing.T) {
	months, days := futureWindow(7)

	now := time.Now()
	require.Contains(t, months, int(now.Month()))
	require.Contains(t, days, now.Day())
}
