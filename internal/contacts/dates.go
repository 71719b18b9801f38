package contacts

import (
	"sort"
	"time"
)

// windowFrom expands the dates in [today, today+days] into sorted month and
// day lists for an IN-list match on birthdays. A window that crosses a month
// boundary also matches a handful of dates just outside it.
func windowFrom(today time.Time, days int) (months, monthDays []int) {
	monthSet := map[int]struct{}{}
	daySet := map[int]struct{}{}
	for i := 0; i <= days; i++ {
		d := today.AddDate(0, 0, i)
		monthSet[int(d.Month())] = struct{}{}
		daySet[d.Day()] = struct{}{}
	}
	return sortedKeys(monthSet), sortedKeys(daySet)
}

func futureWindow(days int) (months, monthDays []int) {
	return windowFrom(time.Now(), days)
}

func sortedKeys(set map[int]struct{}) []int {
	keys := make([]int, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
