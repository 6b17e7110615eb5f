// Package cronutil wraps robfig/cron's standard 5-field parser with the
// strictly-next-firing semantics the materializer needs.
package cronutil

import (
	"time"

	"github.com/robfig/cron/v3"
)

// Next returns the first firing of expr strictly after t, in UTC, with
// seconds truncated to zero. expr must be a 5-field standard cron
// expression (minute hour day-of-month month day-of-week).
func Next(expr string, t time.Time) (time.Time, error) {
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(t.UTC()).Truncate(time.Second), nil
}

// Valid reports whether expr parses as a standard 5-field cron expression.
func Valid(expr string) bool {
	_, err := cron.ParseStandard(expr)
	return err == nil
}
