package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Log       LogConfig
	Orders    OrdersConfig
	Scheduler SchedulerConfig
	Cash      CashConfig
	Kafka     KafkaConfig
	Store     StoreConfig
}

type ServerConfig struct {
	Port int
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type LogConfig struct {
	Level string
}

type OrdersConfig struct {
	// FlowFile is an optional yaml file with per-type duration overrides.
	FlowFile     string
	PreloadLimit int
}

type SchedulerConfig struct {
	Interval          time.Duration
	ProgressThreshold float64
}

type CashConfig struct {
	TxTimeout        time.Duration
	MaxRetryAttempts int
}

type KafkaConfig struct {
	// Brokers is empty when print jobs should only be logged.
	Brokers    []string
	PrintTopic string
}

// StoreConfig holds the fallback opening schedule used until settings are stored.
type StoreConfig struct {
	Timezone string
	// OpeningHours maps a weekday to comma separated HH:MM-HH:MM windows. Empty means always open.
	OpeningHours map[string]string
}

func Load() (*Config, error) {
	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", 8080)
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", 3306)
	viper.SetDefault("DB_USER", "comanda")
	viper.SetDefault("DB_PASSWORD", "secret")
	viper.SetDefault("DB_NAME", "comanda")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_LIFETIME", "5m")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("ORDER_FLOW_FILE", "")
	viper.SetDefault("ORDERS_PRELOAD_LIMIT", 100)
	viper.SetDefault("SCHEDULER_INTERVAL", "5s")
	viper.SetDefault("SCHEDULER_PROGRESS_THRESHOLD", 5)
	viper.SetDefault("CASH_TX_TIMEOUT", "5s")
	viper.SetDefault("CASH_MAX_RETRY_ATTEMPTS", 3)
	viper.SetDefault("KAFKA_BROKERS", "")
	viper.SetDefault("KAFKA_PRINT_TOPIC", "order.print")
	viper.SetDefault("STORE_TIMEZONE", "UTC")
	viper.SetDefault("STORE_OPENING_HOURS", "")

	connMaxLifetime, err := time.ParseDuration(viper.GetString("DB_CONN_MAX_LIFETIME"))
	if err != nil {
		return nil, err
	}
	schedulerInterval, err := time.ParseDuration(viper.GetString("SCHEDULER_INTERVAL"))
	if err != nil {
		return nil, err
	}
	cashTxTimeout, err := time.ParseDuration(viper.GetString("CASH_TX_TIMEOUT"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetInt("SERVER_PORT"),
		},
		Database: DatabaseConfig{
			Host:            viper.GetString("DB_HOST"),
			Port:            viper.GetInt("DB_PORT"),
			User:            viper.GetString("DB_USER"),
			Password:        viper.GetString("DB_PASSWORD"),
			Name:            viper.GetString("DB_NAME"),
			MaxOpenConns:    viper.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    viper.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: connMaxLifetime,
		},
		Log: LogConfig{
			Level: viper.GetString("LOG_LEVEL"),
		},
		Orders: OrdersConfig{
			FlowFile:     viper.GetString("ORDER_FLOW_FILE"),
			PreloadLimit: viper.GetInt("ORDERS_PRELOAD_LIMIT"),
		},
		Scheduler: SchedulerConfig{
			Interval:          schedulerInterval,
			ProgressThreshold: viper.GetFloat64("SCHEDULER_PROGRESS_THRESHOLD"),
		},
		Cash: CashConfig{
			TxTimeout:        cashTxTimeout,
			MaxRetryAttempts: viper.GetInt("CASH_MAX_RETRY_ATTEMPTS"),
		},
		Kafka: KafkaConfig{
			Brokers:    splitList(viper.GetString("KAFKA_BROKERS")),
			PrintTopic: viper.GetString("KAFKA_PRINT_TOPIC"),
		},
		Store: StoreConfig{
			Timezone:     viper.GetString("STORE_TIMEZONE"),
			OpeningHours: splitDays(viper.GetString("STORE_OPENING_HOURS")),
		},
	}

	return cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// splitDays reads "monday=18:00-23:00;friday=18:00-23:00,23:30-02:00".
func splitDays(raw string) map[string]string {
	out := map[string]string{}
	for _, entry := range strings.Split(raw, ";") {
		day, windows, ok := strings.Cut(entry, "=")
		if day = strings.TrimSpace(day); !ok || day == "" {
			continue
		}
		out[day] = strings.TrimSpace(windows)
	}
	return out
}
