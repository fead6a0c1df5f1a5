package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App               AppConfig
	HTTP              ServerConfig
	GRPC              ServerConfig
	MySQL             MySQLConfig
	Log               LogConfig
	InternalEndpoints InternalEndpointsConfig
	Orders            OrdersConfig
	Providers         ProvidersConfig
	Kafka             KafkaConfig
	Metrics           MetricsConfig
	Jobs              JobsConfig
}

type AppConfig struct {
	ServiceName string
	APIKey      string
	// PublicBaseURL is where providers reach the webhook routes.
	PublicBaseURL string
	// FrontendURL is where sponsors land after paying.
	FrontendURL string
}

type ServerConfig struct {
	Host string
	Port string
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	MigrationsPath  string
}

type LogConfig struct {
	Level  string
	Format string
}

type InternalEndpointsConfig struct {
	AuthGRPCAddr string
}

type OrdersConfig struct {
	Currency            string
	ItemName            string
	OrderTTL            time.Duration
	JobBatchSize        int32
	ReconcileStaleAfter time.Duration
	EventMaxAttempts    int32
	EventRetryInterval  time.Duration
	LockCapacity        int
	LockTTL             time.Duration
}

type ProvidersConfig struct {
	// Enabled lists provider codes in the priority used for method listings.
	Enabled    []string
	Transport  TransportConfig
	ECPay      ECPayConfig
	SpeedPay   SpeedPayConfig
	NewebPay   NewebPayConfig
	Stablecoin StablecoinConfig
}

type TransportConfig struct {
	Timeout        time.Duration
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

type ECPayConfig struct {
	BaseURL          string
	MerchantID       string
	HashKey          string
	HashIV           string
	PendingCodes     []string
	QueryFailedCodes []string
	DisabledMethods  []string
}

type SpeedPayConfig struct {
	BaseURL         string
	MerchantID      string
	APIKey          string
	SecretKey       string
	DisabledMethods []string
}

type NewebPayConfig struct {
	BaseURL         string
	MerchantID      string
	HashKey         string
	HashIV          string
	DisabledMethods []string
}

type StablecoinConfig struct {
	WatcherSecret string
	LedgerBaseURL string
	LedgerAPIKey  string
	ERC20Address  string
	TRC20Address  string
	Disabled      []string
}

type KafkaConfig struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
}

type MetricsConfig struct {
	Enabled bool
	Path    string
}

type JobsConfig struct {
	ReconcileInterval     time.Duration
	EventDispatchInterval time.Duration
	ExpirePendingInterval time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	return &Config{
		App: AppConfig{
			ServiceName:   getEnv("APP_SERVICE_NAME", "sponsorships-service"),
			APIKey:        getEnv("APP_API_KEY", ""),
			PublicBaseURL: strings.TrimRight(getEnv("APP_PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
			FrontendURL:   strings.TrimRight(getEnv("APP_FRONTEND_URL", "http://localhost:3000"), "/"),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		GRPC: ServerConfig{
			Host: getEnv("GRPC_HOST", "0.0.0.0"),
			Port: getEnv("GRPC_PORT", "9090"),
		},
		MySQL: MySQLConfig{
			DSN:             mysqlDSN,
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("MYSQL_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
			MigrationsPath:  getEnv("MYSQL_MIGRATIONS_PATH", "migrations"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		InternalEndpoints: InternalEndpointsConfig{
			AuthGRPCAddr: getEnv("AUTH_SERVICE_GRPC_ADDR", "localhost:9090"),
		},
		Orders: OrdersConfig{
			Currency:            getEnv("ORDERS_CURRENCY", "TWD"),
			ItemName:            getEnv("ORDERS_ITEM_NAME", "Sponsorship"),
			OrderTTL:            getMinutesEnv("ORDERS_TTL_MINUTES", 30*time.Minute),
			JobBatchSize:        int32(getIntEnv("ORDERS_JOB_BATCH_SIZE", 100)),
			ReconcileStaleAfter: getMinutesEnv("ORDERS_RECONCILE_STALE_AFTER_MINUTES", 2*time.Minute),
			EventMaxAttempts:    int32(getIntEnv("ORDERS_EVENT_MAX_ATTEMPTS", 10)),
			EventRetryInterval:  getMinutesEnv("ORDERS_EVENT_RETRY_INTERVAL_MINUTES", time.Minute),
			LockCapacity:        getIntEnv("ORDERS_LOCK_CAPACITY", 10000),
			LockTTL:             getSecondsEnv("ORDERS_LOCK_TTL_SECONDS", 2*time.Minute),
		},
		Providers: ProvidersConfig{
			Enabled: getListEnv("PROVIDERS_ENABLED", []string{"ecpay", "newebpay", "speedpay", "usdt_trc20", "usdt_erc20"}),
			Transport: TransportConfig{
				Timeout:        getSecondsEnv("PROVIDERS_HTTP_TIMEOUT_SECONDS", 30*time.Second),
				MaxRetries:     getIntEnv("PROVIDERS_HTTP_MAX_RETRIES", 3),
				InitialBackoff: getSecondsEnv("PROVIDERS_HTTP_INITIAL_BACKOFF_SECONDS", time.Second),
				MaxBackoff:     getSecondsEnv("PROVIDERS_HTTP_MAX_BACKOFF_SECONDS", 8*time.Second),
			},
			ECPay: ECPayConfig{
				BaseURL:          getEnv("ECPAY_BASE_URL", "https://payment-stage.ecpay.com.tw"),
				MerchantID:       getEnv("ECPAY_MERCHANT_ID", "2000132"),
				HashKey:          getEnv("ECPAY_HASH_KEY", "5294y06JbISpM5x9"),
				HashIV:           getEnv("ECPAY_HASH_IV", "v77hoKGq4kWxNNIS"),
				PendingCodes:     getListEnv("ECPAY_PENDING_CODES", nil),
				QueryFailedCodes: getListEnv("ECPAY_QUERY_FAILED_CODES", nil),
				DisabledMethods:  getListEnv("ECPAY_DISABLED_METHODS", nil),
			},
			SpeedPay: SpeedPayConfig{
				BaseURL:         getEnv("SPEEDPAY_BASE_URL", "https://api.speedpay.com.tw"),
				MerchantID:      getEnv("SPEEDPAY_MERCHANT_ID", "TEST_MERCHANT"),
				APIKey:          getEnv("SPEEDPAY_API_KEY", "TEST_API_KEY"),
				SecretKey:       getEnv("SPEEDPAY_SECRET_KEY", "TEST_SECRET_KEY"),
				DisabledMethods: getListEnv("SPEEDPAY_DISABLED_METHODS", nil),
			},
			NewebPay: NewebPayConfig{
				BaseURL:         getEnv("NEWEBPAY_BASE_URL", "https://ccore.newebpay.com"),
				MerchantID:      getEnv("NEWEBPAY_MERCHANT_ID", "MS350720000"),
				HashKey:         getEnv("NEWEBPAY_HASH_KEY", "abcdefghijklmnopqrstuvwxyz123456"),
				HashIV:          getEnv("NEWEBPAY_HASH_IV", "1234567890123456"),
				DisabledMethods: getListEnv("NEWEBPAY_DISABLED_METHODS", nil),
			},
			Stablecoin: StablecoinConfig{
				WatcherSecret: getEnv("USDT_WATCHER_SECRET", ""),
				LedgerBaseURL: getEnv("USDT_LEDGER_BASE_URL", ""),
				LedgerAPIKey:  getEnv("USDT_LEDGER_API_KEY", ""),
				ERC20Address:  getEnv("USDT_ERC20_ADDRESS", ""),
				TRC20Address:  getEnv("USDT_TRC20_ADDRESS", ""),
				Disabled:      getListEnv("USDT_DISABLED_NETWORKS", nil),
			},
		},
		Kafka: KafkaConfig{
			Brokers:      getListEnv("KAFKA_BROKERS", nil),
			Topic:        getEnv("KAFKA_ORDERS_TOPIC", "sponsorship.orders.settled"),
			WriteTimeout: getSecondsEnv("KAFKA_WRITE_TIMEOUT_SECONDS", 10*time.Second),
		},
		Metrics: MetricsConfig{
			Enabled: getBoolEnv("METRICS_ENABLED", true),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
		Jobs: JobsConfig{
			ReconcileInterval:     getMinutesEnv("JOBS_RECONCILE_INTERVAL_MINUTES", 2*time.Minute),
			EventDispatchInterval: getMinutesEnv("JOBS_EVENT_DISPATCH_INTERVAL_MINUTES", time.Minute),
			ExpirePendingInterval: getMinutesEnv("JOBS_EXPIRE_PENDING_INTERVAL_MINUTES", 5*time.Minute),
		},
	}, nil
}

// WebhookURL is the public callback address for one provider.
func (c AppConfig) WebhookURL(providerCode string) string {
	return c.PublicBaseURL + "/webhooks/providers/" + providerCode
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}

// getListEnv splits a comma separated value, dropping blanks.
func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	out := make([]string, 0)
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
