package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Geo      GeoConfig      `mapstructure:"geo"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Log      LogConfig      `mapstructure:"log"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type ServerConfig struct {
	Port           int `mapstructure:"port"`
	TimeoutSeconds int `mapstructure:"timeoutSeconds"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

type GeoConfig struct {
	OSRMBaseURL       string        `mapstructure:"osrm_base_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
	ClinicLatitude    float64       `mapstructure:"clinic_latitude"`
	ClinicLongitude   float64       `mapstructure:"clinic_longitude"`
	DefaultTravelMins float64       `mapstructure:"default_travel_mins"`
}

// QueueConfig tunes scoring, aging and ETA prediction.
type QueueConfig struct {
	AgingRatePoints         float64       `mapstructure:"aging_rate_points"`
	AgingInterval           time.Duration `mapstructure:"aging_interval"`
	StarvationThreshold     time.Duration `mapstructure:"starvation_threshold"`
	MaxWaitTime             time.Duration `mapstructure:"max_wait_time"`
	DefaultConsultationMins float64       `mapstructure:"default_consultation_mins"`
	DepartureBufferMins     float64       `mapstructure:"departure_buffer_mins"`
	TravelWeight            float64       `mapstructure:"travel_weight"`
	TravelPenaltyCapMins    float64       `mapstructure:"travel_penalty_cap_mins"`
	ImbalanceThreshold      int           `mapstructure:"imbalance_threshold"`
	TickInterval            time.Duration `mapstructure:"tick_interval"`
}

// DefaultQueueConfig returns the documented defaults; viper values override
// field by field.
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		AgingRatePoints:         5,
		AgingInterval:           5 * time.Minute,
		StarvationThreshold:     30 * time.Minute,
		MaxWaitTime:             120 * time.Minute,
		DefaultConsultationMins: 15,
		DepartureBufferMins:     10,
		TravelWeight:            0.2,
		TravelPenaltyCapMins:    60,
		ImbalanceThreshold:      3,
		TickInterval:            time.Minute,
	}
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.timeoutSeconds", 30)

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.pretty", false)

	viper.SetDefault("geo.osrm_base_url", "https://router.project-osrm.org")
	viper.SetDefault("geo.timeout", 10*time.Second)
	viper.SetDefault("geo.cache_ttl", 5*time.Minute)
	viper.SetDefault("geo.default_travel_mins", 20)

	q := DefaultQueueConfig()
	viper.SetDefault("queue.aging_rate_points", q.AgingRatePoints)
	viper.SetDefault("queue.aging_interval", q.AgingInterval)
	viper.SetDefault("queue.starvation_threshold", q.StarvationThreshold)
	viper.SetDefault("queue.max_wait_time", q.MaxWaitTime)
	viper.SetDefault("queue.default_consultation_mins", q.DefaultConsultationMins)
	viper.SetDefault("queue.departure_buffer_mins", q.DepartureBufferMins)
	viper.SetDefault("queue.travel_weight", q.TravelWeight)
	viper.SetDefault("queue.travel_penalty_cap_mins", q.TravelPenaltyCapMins)
	viper.SetDefault("queue.imbalance_threshold", q.ImbalanceThreshold)
	viper.SetDefault("queue.tick_interval", q.TickInterval)
}
