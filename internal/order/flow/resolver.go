package flow

import (
	"sync"
	"time"

	"comanda/internal/domain"
)

// Durations maps a status to the time an order stays in it before auto-progressing.
type Durations map[domain.OrderStatus]time.Duration

// Settings holds per-order-type durations.
type Settings map[domain.OrderType]Durations

// DefaultSettings are the built-in durations. The COUNTER entry doubles as the baseline
// for any type/status pair missing elsewhere.
var DefaultSettings = Settings{
	domain.OrderTypeCounter: {
		domain.OrderStatusPending:        1 * time.Minute,
		domain.OrderStatusPreparing:      10 * time.Minute,
		domain.OrderStatusReadyForPickup: 5 * time.Minute,
		domain.OrderStatusOutForDelivery: 0,
		domain.OrderStatusDelivered:      0,
		domain.OrderStatusCancelled:      0,
	},
	domain.OrderTypeDelivery: {
		domain.OrderStatusPending:        2 * time.Minute,
		domain.OrderStatusPreparing:      15 * time.Minute,
		domain.OrderStatusReadyForPickup: 5 * time.Minute,
		domain.OrderStatusOutForDelivery: 30 * time.Minute,
	},
	domain.OrderTypeDineIn: {
		domain.OrderStatusPending:        1 * time.Minute,
		domain.OrderStatusPreparing:      15 * time.Minute,
		domain.OrderStatusReadyForPickup: 0,
		domain.OrderStatusOutForDelivery: 0,
	},
}

// MaxDuration bounds a configured duration. A longer stay in one status is a typo.
const MaxDuration = 24 * time.Hour

// Resolver answers how long an order of a given type stays in a given status.
// Lookup order: custom settings, per-type defaults, COUNTER defaults, zero.
type Resolver struct {
	mu     sync.RWMutex
	custom Settings
}

func NewResolver(custom Settings) *Resolver {
	return &Resolver{custom: custom.clone()}
}

func (r *Resolver) Duration(orderType domain.OrderType, status domain.OrderStatus) time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if d, ok := r.custom[orderType][status]; ok {
		return d
	}
	if d, ok := DefaultSettings[orderType][status]; ok {
		return d
	}
	return DefaultSettings[domain.OrderTypeCounter][status]
}

// Replace swaps the custom layer.
func (r *Resolver) Replace(custom Settings) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.custom = custom.clone()
}

// Custom returns a copy of the custom layer.
func (r *Resolver) Custom() Settings {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.custom.clone()
}

func (s Settings) clone() Settings {
	out := make(Settings, len(s))
	for orderType, durations := range s {
		copied := make(Durations, len(durations))
		for status, d := range durations {
			copied[status] = d
		}
		out[orderType] = copied
	}
	return out
}

// Merge overlays other on top of s and returns the result.
func (s Settings) Merge(other Settings) Settings {
	out := s.clone()
	for orderType, durations := range other {
		if out[orderType] == nil {
			out[orderType] = Durations{}
		}
		for status, d := range durations {
			out[orderType][status] = d
		}
	}
	return out
}

// ToMillis renders settings in the milliseconds form used by the settings file and API.
func (s Settings) ToMillis() map[string]map[string]int64 {
	out := make(map[string]map[string]int64, len(s))
	for orderType, durations := range s {
		inner := make(map[string]int64, len(durations))
		for status, d := range durations {
			inner[string(status)] = d.Milliseconds()
		}
		out[string(orderType)] = inner
	}
	return out
}

// SettingsFromMillis validates raw milliseconds keyed by type then status.
func SettingsFromMillis(raw map[string]map[string]int64) (Settings, error) {
	out := make(Settings, len(raw))
	for rawType, durations := range raw {
		orderType := domain.OrderType(rawType)
		if !orderType.IsValid() {
			return nil, &SettingsError{Key: rawType, Reason: "unknown order type"}
		}
		parsed := make(Durations, len(durations))
		for rawStatus, ms := range durations {
			status := domain.OrderStatus(rawStatus)
			if !status.IsValid() {
				return nil, &SettingsError{Key: rawType + "." + rawStatus, Reason: "unknown order status"}
			}
			if ms < 0 {
				return nil, &SettingsError{Key: rawType + "." + rawStatus, Reason: "duration must not be negative"}
			}
			if ms > MaxDuration.Milliseconds() {
				return nil, &SettingsError{Key: rawType + "." + rawStatus, Reason: "duration must not exceed 24h"}
			}
			parsed[status] = time.Duration(ms) * time.Millisecond
		}
		out[orderType] = parsed
	}
	return out, nil
}

type SettingsError struct {
	Key    string
	Reason string
}

func (e *SettingsError) Error() string {
	return "order flow setting " + e.Key + ": " + e.Reason
}
