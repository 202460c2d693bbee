// Package metrics provides easy methods to record metrics for a single fence
// invocation and flush them before the process exits.
package metrics

import (
	"time"

	gometrics "github.com/rcrowley/go-metrics"
)

// DefaultRegistry holds every metric recorded by Mark and TimeSince.
var DefaultRegistry = gometrics.NewRegistry()

// Mark increases the meter metric with the given name by 1
func Mark(name string) {
	gometrics.GetOrRegisterMeter(name, DefaultRegistry).Mark(1)
}

// TimeSince updates the timer metric with the given name with
// time.Since(start)
func TimeSince(name string, start time.Time) {
	gometrics.GetOrRegisterTimer(name, DefaultRegistry).UpdateSince(start)
}

// Each calls f for every registered metric, in no particular order.
func Each(f func(string, interface{})) {
	DefaultRegistry.Each(f)
}
