package utils

import "github.com/sensu/sensu-plugin-sdk/sensu"

// Above grades value against thresholds that alarm when reached from below.
func Above(value, warning, critical float64) int {
	switch {
	case value >= critical:
		return sensu.CheckStateCritical
	case value >= warning:
		return sensu.CheckStateWarning
	}
	return sensu.CheckStateOK
}

// Below grades value against thresholds that alarm when reached from above.
func Below(value, warning, critical float64) int {
	switch {
	case value <= critical:
		return sensu.CheckStateCritical
	case value <= warning:
		return sensu.CheckStateWarning
	}
	return sensu.CheckStateOK
}

// Worst returns the most severe of the statuses, UNKNOWN ranking under CRITICAL.
func Worst(statuses ...int) int {
	rank := map[int]int{
		sensu.CheckStateOK:       0,
		sensu.CheckStateUnknown:  1,
		sensu.CheckStateWarning:  2,
		sensu.CheckStateCritical: 3,
	}
	worst := sensu.CheckStateOK
	for _, status := range statuses {
		if rank[status] > rank[worst] {
			worst = status
		}
	}
	return worst
}
