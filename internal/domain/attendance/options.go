package attendance

import (
	"math/rand/v2"
	"time"
)

const (
	// DefaultRoomTTL is used when neither the caller nor the meeting
	// schedule gives a duration.
	DefaultRoomTTL = 30 * time.Minute
	// DefaultMaxRoomTTL caps how long a room may stay open.
	DefaultMaxRoomTTL = 6 * time.Hour

	minRoomTTL = time.Minute
)

// Options tunes room lifetimes and spot checks. Zero values select defaults.
type Options struct {
	DefaultTTL time.Duration
	MaxTTL     time.Duration
	// VerificationRate is the probability in [0,1] that a self check-in is
	// held for manual verification. Zero disables spot checks.
	VerificationRate float64

	Now     func() time.Time
	NewCode func() (string, error)
	Sample  func() float64
}

func (o Options) withDefaults() Options {
	if o.DefaultTTL <= 0 {
		o.DefaultTTL = DefaultRoomTTL
	}
	if o.MaxTTL <= 0 {
		o.MaxTTL = DefaultMaxRoomTTL
	}
	if o.DefaultTTL > o.MaxTTL {
		o.DefaultTTL = o.MaxTTL
	}
	if o.VerificationRate < 0 {
		o.VerificationRate = 0
	}
	if o.VerificationRate > 1 {
		o.VerificationRate = 1
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewCode == nil {
		o.NewCode = NewCode
	}
	if o.Sample == nil {
		o.Sample = rand.Float64
	}
	return o
}
