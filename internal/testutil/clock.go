package testutil

import (
	"strconv"
	"sync/atomic"
	"time"

	"colstore-go/internal/colstore"
)

// DefaultTime is what test stores report as now unless given a clock.
var DefaultTime = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

// ManualClock is a colstore.Clock that only moves when Advance is called.
type ManualClock struct {
	nanos atomic.Int64
}

func NewManualClock(start time.Time) *ManualClock {
	c := &ManualClock{}
	c.nanos.Store(start.UnixNano())
	return c
}

func (c *ManualClock) Now() time.Time { return time.Unix(0, c.nanos.Load()).UTC() }

func (c *ManualClock) Advance(d time.Duration) { c.nanos.Add(int64(d)) }

// sequentialIDs numbers records "id-1", "id-2", ... so test output is stable.
type sequentialIDs struct {
	n atomic.Uint64
}

func (g *sequentialIDs) New() string { return "id-" + strconv.FormatUint(g.n.Add(1), 10) }

var (
	_ colstore.Clock       = (*ManualClock)(nil)
	_ colstore.IDGenerator = (*sequentialIDs)(nil)
)
