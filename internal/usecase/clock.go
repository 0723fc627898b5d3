package usecase

import (
	"time"

	"github.com/iho/hoaledger/internal/domain"
)

// Clock supplies the current time. Use cases never call time.Now directly.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock in UTC.
var SystemClock Clock = ClockFunc(func() time.Time { return time.Now().UTC() })

func today(c Clock) domain.Date {
	return domain.DateOf(c.Now())
}
