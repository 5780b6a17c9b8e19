package commons

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"comanda/internal/order/flow"
)

// LoadOrderFlow reads per-type duration overrides from a yaml file. Values are milliseconds
// keyed by order type and then status:
//
//	DELIVERY:
//	  PREPARING: 1200000
func LoadOrderFlow(path string) (flow.Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading order flow file: %w", err)
	}

	var raw map[string]map[string]int64
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing order flow file: %w", err)
	}

	settings, err := flow.SettingsFromMillis(raw)
	if err != nil {
		return nil, fmt.Errorf("validating order flow file: %w", err)
	}

	return settings, nil
}
