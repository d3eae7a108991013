package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	Kafka        KafkaConfig
	Gateway      GatewayConfig
	Notification ServiceConfig
}

type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxOpenConns   int
	MaxIdleConns   int
	MaxLifetime    time.Duration
	MigrationsPath string
}

func (d DatabaseConfig) ConnectionString() string {
	return "host=" + d.Host +
		" port=" + strconv.Itoa(d.Port) +
		" user=" + d.User +
		" password=" + d.Password +
		" dbname=" + d.Name +
		" sslmode=" + d.SSLMode
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers       []string
	CheckoutTopic string
}

// GatewayConfig holds the payment gateway parameters. The secret key signs
// every outbound form and authenticates every inbound callback.
type GatewayConfig struct {
	FormURL       string
	MerchantCode  string
	SecretKey     string
	ReturnBaseURL string
}

type ServiceConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:  time.Duration(getEnvInt("SERVER_READ_TIMEOUT", 30)) * time.Second,
			WriteTimeout: time.Duration(getEnvInt("SERVER_WRITE_TIMEOUT", 30)) * time.Second,
		},
		Database: DatabaseConfig{
			Host:           getEnvString("DB_HOST", "localhost"),
			Port:           getEnvInt("DB_PORT", 5432),
			User:           getEnvString("DB_USER", "pujakriti"),
			Password:       getEnvString("DB_PASSWORD", "pujakriti"),
			Name:           getEnvString("DB_NAME", "pujakriti_checkout"),
			SSLMode:        getEnvString("DB_SSLMODE", "disable"),
			MaxOpenConns:   getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:   getEnvInt("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:    time.Duration(getEnvInt("DB_MAX_LIFETIME_MIN", 30)) * time.Minute,
			MigrationsPath: getEnvString("DB_MIGRATIONS_PATH", "internal/repository/migrations"),
		},
		Redis: RedisConfig{
			Host:     getEnvString("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnvString("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers:       []string{getEnvString("KAFKA_BROKER", "localhost:9092")},
			CheckoutTopic: getEnvString("KAFKA_CHECKOUT_TOPIC", "checkout.events"),
		},
		Gateway: GatewayConfig{
			FormURL:       getEnvString("GATEWAY_FORM_URL", "https://rc-epay.esewa.com.np/api/epay/main/v2/form"),
			MerchantCode:  getEnvString("GATEWAY_MERCHANT_CODE", "EPAYTEST"),
			SecretKey:     getEnvString("GATEWAY_SECRET_KEY", "8gBm/:&EnhH.1/q"),
			ReturnBaseURL: getEnvString("GATEWAY_RETURN_BASE_URL", "https://localhost:3000/payment-verify"),
		},
		Notification: ServiceConfig{
			BaseURL: getEnvString("NOTIFICATION_SERVICE_URL", "http://localhost:8085"),
			APIKey:  getEnvString("NOTIFICATION_SERVICE_API_KEY", ""),
			Timeout: time.Duration(getEnvInt("NOTIFICATION_SERVICE_TIMEOUT", 30)) * time.Second,
		},
	}
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
