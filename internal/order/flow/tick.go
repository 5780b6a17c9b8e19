package flow

import (
	"math"
	"time"

	"comanda/internal/domain"
)

type TickKind int

const (
	// TickIdle means nothing changed for the order.
	TickIdle TickKind = iota
	// TickAdvance means the timer expired and the order moves to TickDecision.Next.
	TickAdvance
	// TickComplete means the timer expired on a status without a successor.
	TickComplete
	// TickPersistProgress means progress moved enough to be written to the store.
	TickPersistProgress
	// TickLocalProgress means progress moved but only the in-memory copy is refreshed.
	TickLocalProgress
)

func (k TickKind) String() string {
	switch k {
	case TickAdvance:
		return "advance"
	case TickComplete:
		return "complete"
	case TickPersistProgress:
		return "persist_progress"
	case TickLocalProgress:
		return "local_progress"
	}
	return "idle"
}

type TickDecision struct {
	Kind     TickKind
	Next     domain.OrderStatus
	Progress int
}

// Eligible reports whether the scheduler should look at order at all.
func Eligible(order domain.Order) bool {
	return order.AutoProgress && order.NextAutoTransitionTime != nil && !order.Status.IsTerminal()
}

// Progress is the elapsed share of total in [0,100] given the transition instant next.
// A zero total counts as done once next has passed.
func Progress(total time.Duration, next, now time.Time) float64 {
	if total <= 0 {
		if !now.Before(next) {
			return 100
		}
		return 0
	}
	remaining := next.Sub(now)
	elapsed := total - remaining
	p := float64(elapsed) / float64(total) * 100
	return math.Max(0, math.Min(100, p))
}

// EvaluateTick decides what one scheduler pass does with order. total is the configured
// duration of the order's current status and threshold the minimum progress change, in
// percentage points, worth persisting.
func EvaluateTick(order domain.Order, total time.Duration, now time.Time, threshold float64) TickDecision {
	if !Eligible(order) {
		return TickDecision{Kind: TickIdle}
	}

	next := *order.NextAutoTransitionTime
	if !now.Before(next) {
		successor, ok := ScheduledSuccessor(order.OrderType, order.Status)
		if !ok {
			return TickDecision{Kind: TickComplete, Progress: 100}
		}
		return TickDecision{Kind: TickAdvance, Next: successor, Progress: 100}
	}

	progress := Progress(total, next, now)
	rounded := int(math.Round(progress))
	stored := order.CurrentProgressPercent

	switch {
	case math.Abs(progress-float64(stored)) > threshold,
		rounded == 100 && stored != 100,
		rounded == 0 && stored != 0:
		return TickDecision{Kind: TickPersistProgress, Progress: rounded}
	case rounded != stored:
		return TickDecision{Kind: TickLocalProgress, Progress: rounded}
	}
	return TickDecision{Kind: TickIdle, Progress: stored}
}
