package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"comanda/internal/commons"
	"comanda/internal/domain"
	apperrors "comanda/internal/errors"
	"comanda/internal/notice"
	"comanda/internal/order/flow"
	"comanda/internal/settings/repository"
	"comanda/internal/storehours"
)

type SettingsRepository interface {
	Find(ctx context.Context) (*repository.Document, error)
	Save(ctx context.Context, doc repository.Document) error
}

// DurationLayer is the replaceable custom layer of the duration resolver.
type DurationLayer interface {
	Replace(custom flow.Settings)
	Duration(orderType domain.OrderType, status domain.OrderStatus) time.Duration
}

// HoursLayer holds the opening schedule checked on online checkout.
type HoursLayer interface {
	Replace(hours *storehours.Hours)
	Hours() *storehours.Hours
}

// Defaults are the values in force while nothing is stored.
type Defaults struct {
	OrderFlow flow.Settings
	Hours     *storehours.Hours
}

// StoreHours is the opening schedule as exposed to clients.
type StoreHours struct {
	Timezone     string            `json:"timezone"`
	OpeningHours map[string]string `json:"openingHours"`
	OpenNow      bool              `json:"openNow"`
}

var orderTypes = []domain.OrderType{domain.OrderTypeCounter, domain.OrderTypeDelivery, domain.OrderTypeDineIn}

// SettingsService keeps the resolver and the store calendar in sync with the stored
// settings. Stored values win over the configured defaults.
type SettingsService struct {
	repo     SettingsRepository
	resolver DurationLayer
	calendar HoursLayer
	defaults Defaults
	notifier notice.Notifier
	clock    commons.Clock
	logger   *zap.Logger

	// writeMu serializes read-modify-write of the settings document.
	writeMu sync.Mutex
}

func NewSettingsService(
	repo SettingsRepository,
	resolver DurationLayer,
	calendar HoursLayer,
	defaults Defaults,
	notifier notice.Notifier,
	clock commons.Clock,
	logger *zap.Logger,
) *SettingsService {
	if defaults.OrderFlow == nil {
		defaults.OrderFlow = flow.Settings{}
	}
	return &SettingsService{
		repo:     repo,
		resolver: resolver,
		calendar: calendar,
		defaults: defaults,
		notifier: notifier,
		clock:    clock,
		logger:   logger,
	}
}

// Fetch loads the stored settings and installs them. It returns the effective duration of
// every type and status in milliseconds.
func (s *SettingsService) Fetch(ctx context.Context) (map[string]map[string]int64, error) {
	doc, err := s.document(ctx)
	if err != nil {
		s.logger.Error("failed to load settings", zap.Error(err))
		s.notifier.Notify(notice.Failure("Failed to load settings", err))
		return nil, err
	}

	custom, err := flow.SettingsFromMillis(doc.OrderFlow)
	if err != nil {
		s.logger.Warn("ignoring invalid stored order flow", zap.Error(err))
		custom = flow.Settings{}
	}
	s.resolver.Replace(s.defaults.OrderFlow.Merge(custom))

	hours := s.defaults.Hours
	if doc.Store != nil {
		stored, err := storehours.Parse(doc.Store.OpeningHours, doc.Store.Timezone)
		if err != nil {
			s.logger.Warn("ignoring invalid stored store hours", zap.Error(err))
		} else {
			hours = stored
		}
	}
	s.calendar.Replace(hours)

	return s.Effective(), nil
}

// UpdateOrderFlow validates and stores new duration overrides, then installs them.
func (s *SettingsService) UpdateOrderFlow(ctx context.Context, raw map[string]map[string]int64) (map[string]map[string]int64, error) {
	const operation = "Failed to save order flow settings"

	custom, err := flow.SettingsFromMillis(raw)
	if err != nil {
		detail := apperrors.ValidationDetail{Field: "orderFlow", Message: err.Error()}
		var settingsErr *flow.SettingsError
		if errors.As(err, &settingsErr) {
			detail = apperrors.ValidationDetail{Field: "orderFlow." + settingsErr.Key, Message: settingsErr.Reason}
		}
		return nil, s.refuse(operation, apperrors.NewValidationError("invalid order flow settings", detail))
	}

	err = s.update(ctx, operation, func(doc *repository.Document) {
		doc.OrderFlow = custom.ToMillis()
	})
	if err != nil {
		return nil, err
	}

	s.resolver.Replace(s.defaults.OrderFlow.Merge(custom))
	s.notifier.Notify(notice.Success("Order flow settings saved"))
	s.logger.Info("order flow settings updated")

	return s.Effective(), nil
}

// StoreHours returns the schedule in force and whether the store is open right now.
func (s *SettingsService) StoreHours() StoreHours {
	hours := s.calendar.Hours()
	return StoreHours{
		Timezone:     hours.Timezone(),
		OpeningHours: hours.OpeningHours(),
		OpenNow:      hours.IsOpen(s.clock.Now()),
	}
}

// UpdateStoreHours validates and stores a new opening schedule, then installs it.
func (s *SettingsService) UpdateStoreHours(ctx context.Context, timezone string, openingHours map[string]string) (StoreHours, error) {
	const operation = "Failed to save store hours"

	hours, err := storehours.Parse(openingHours, timezone)
	if err != nil {
		detail := apperrors.ValidationDetail{Field: "openingHours", Message: err.Error()}
		var hoursErr *storehours.Error
		if errors.As(err, &hoursErr) {
			field := "openingHours." + hoursErr.Key
			if hoursErr.Key == "timezone" {
				field = "timezone"
			}
			detail = apperrors.ValidationDetail{Field: field, Message: hoursErr.Reason}
		}
		return StoreHours{}, s.refuse(operation, apperrors.NewValidationError("invalid store hours", detail))
	}

	err = s.update(ctx, operation, func(doc *repository.Document) {
		doc.Store = &repository.StoreDocument{
			Timezone:     hours.Timezone(),
			OpeningHours: hours.OpeningHours(),
		}
	})
	if err != nil {
		return StoreHours{}, err
	}

	s.calendar.Replace(hours)
	s.notifier.Notify(notice.Success("Store hours saved"))
	s.logger.Info("store hours updated", zap.String("timezone", hours.Timezone()))

	return s.StoreHours(), nil
}

// Effective resolves every type and status through the resolver.
func (s *SettingsService) Effective() map[string]map[string]int64 {
	out := make(map[string]map[string]int64, len(orderTypes))
	for _, orderType := range orderTypes {
		durations := make(map[string]int64, len(domain.OrderStatuses))
		for _, status := range domain.OrderStatuses {
			durations[string(status)] = s.resolver.Duration(orderType, status).Milliseconds()
		}
		out[string(orderType)] = durations
	}
	return out
}

// update applies change to the stored document so that other sections are kept.
func (s *SettingsService) update(ctx context.Context, operation string, change func(doc *repository.Document)) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	doc, err := s.document(ctx)
	if err == nil {
		change(doc)
		err = s.repo.Save(ctx, *doc)
		if err != nil {
			err = apperrors.NewInternalError("saving settings", err)
		}
	}
	if err != nil {
		s.logger.Error(operation, zap.Error(err))
		s.notifier.Notify(notice.Failure(operation, err))
		return err
	}
	return nil
}

func (s *SettingsService) document(ctx context.Context) (*repository.Document, error) {
	doc, err := s.repo.Find(ctx)
	if err != nil {
		if _, ok := apperrors.IsNotFoundError(err); ok {
			return &repository.Document{}, nil
		}
		return nil, apperrors.NewInternalError("loading settings", err)
	}
	return doc, nil
}

func (s *SettingsService) refuse(operation string, err error) error {
	s.logger.Warn(operation, zap.Error(err))
	s.notifier.Notify(notice.ForError(operation, err))
	return err
}
