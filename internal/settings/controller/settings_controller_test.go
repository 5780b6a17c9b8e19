package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "comanda/internal/errors"
	"comanda/internal/settings/service"
)

type mockSettingsService struct {
	FetchFunc           func(ctx context.Context) (map[string]map[string]int64, error)
	UpdateOrderFlowFunc func(ctx context.Context, raw map[string]map[string]int64) (map[string]map[string]int64, error)
	StoreHoursFunc       func() service.StoreHours
	UpdateStoreHoursFunc func(ctx context.Context, timezone string, openingHours map[string]string) (service.StoreHours, error)
}

func (m *mockSettingsService) StoreHours() service.StoreHours {
	return m.StoreHoursFunc()
}

func (m *mockSettingsService) UpdateStoreHours(ctx context.Context, timezone string, openingHours map[string]string) (service.StoreHours, error) {
	return m.UpdateStoreHoursFunc(ctx, timezone, openingHours)
}

func (m *mockSettingsService) Fetch(ctx context.Context) (map[string]map[string]int64, error) {
	return m.FetchFunc(ctx)
}

func (m *mockSettingsService) UpdateOrderFlow(ctx context.Context, raw map[string]map[string]int64) (map[string]map[string]int64, error) {
	return m.UpdateOrderFlowFunc(ctx, raw)
}

func TestGetOrderFlow(t *testing.T) {
	svc := &mockSettingsService{
		FetchFunc: func(ctx context.Context) (map[string]map[string]int64, error) {
			return map[string]map[string]int64{"COUNTER": {"PENDING": 60000}}, nil
		},
	}
	rec := httptest.NewRecorder()

	NewSettingsController(svc, zap.NewNop()).GetOrderFlow(rec, httptest.NewRequest(http.MethodGet, "/settings/order-flow", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body orderFlowBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, int64(60000), body.OrderFlow["COUNTER"]["PENDING"])
}

func TestUpdateOrderFlow_ValidationError(t *testing.T) {
	svc := &mockSettingsService{
		UpdateOrderFlowFunc: func(ctx context.Context, raw map[string]map[string]int64) (map[string]map[string]int64, error) {
			assert.Equal(t, int64(-5), raw["COUNTER"]["PENDING"])
			return nil, apperrors.NewValidationError("invalid order flow settings", apperrors.ValidationDetail{
				Field: "orderFlow.COUNTER.PENDING", Message: "duration must not be negative",
			})
		},
	}
	req := httptest.NewRequest(http.MethodPut, "/settings/order-flow", strings.NewReader(`{"orderFlow":{"COUNTER":{"PENDING":-5}}}`))
	rec := httptest.NewRecorder()

	NewSettingsController(svc, zap.NewNop()).UpdateOrderFlow(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetStoreHours(t *testing.T) {
	svc := &mockSettingsService{
		StoreHoursFunc: func() service.StoreHours {
			return service.StoreHours{Timezone: "UTC", OpeningHours: map[string]string{"monday": "18:00-23:00"}, OpenNow: true}
		},
	}
	rec := httptest.NewRecorder()

	NewSettingsController(svc, zap.NewNop()).GetStoreHours(rec, httptest.NewRequest(http.MethodGet, "/settings/store-hours", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body service.StoreHours
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.True(t, body.OpenNow)
	assert.Equal(t, "18:00-23:00", body.OpeningHours["monday"])
}

func TestUpdateStoreHours(t *testing.T) {
	svc := &mockSettingsService{
		UpdateStoreHoursFunc: func(ctx context.Context, timezone string, openingHours map[string]string) (service.StoreHours, error) {
			assert.Equal(t, "America/Sao_Paulo", timezone)
			assert.Equal(t, "11:00-15:00", openingHours["friday"])
			return service.StoreHours{Timezone: timezone, OpeningHours: openingHours}, nil
		},
	}
	body := `{"timezone":"America/Sao_Paulo","openingHours":{"friday":"11:00-15:00"}}`
	rec := httptest.NewRecorder()

	NewSettingsController(svc, zap.NewNop()).UpdateStoreHours(rec, httptest.NewRequest(http.MethodPut, "/settings/store-hours", strings.NewReader(body)))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUpdateStoreHours_InvalidTimezone(t *testing.T) {
	svc := &mockSettingsService{
		UpdateStoreHoursFunc: func(ctx context.Context, timezone string, openingHours map[string]string) (service.StoreHours, error) {
			return service.StoreHours{}, apperrors.NewValidationError("invalid store hours", apperrors.ValidationDetail{
				Field: "timezone", Message: "unknown time zone",
			})
		},
	}
	rec := httptest.NewRecorder()

	NewSettingsController(svc, zap.NewNop()).UpdateStoreHours(rec, httptest.NewRequest(http.MethodPut, "/settings/store-hours", strings.NewReader(`{"timezone":"Mars/Olympus"}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
