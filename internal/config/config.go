package config

import "time"

// Config is the root application configuration.
type Config struct {
	App     AppConfig     `yaml:"app"`
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Twilio  TwilioConfig  `yaml:"twilio"`
	Storage StorageConfig `yaml:"storage"`
	Records RecordsConfig `yaml:"records"`
	Redis   RedisConfig   `yaml:"redis"`
	Otel    OtelConfig    `yaml:"otel"`
	Metrics MetricsConfig `yaml:"metrics"`
	Admin   AdminConfig   `yaml:"admin"`
	CORS    CORSConfig    `yaml:"cors"`
	Vars    VarsConfig    `yaml:"vars"`
	Media   MediaConfig   `yaml:"media"`
}

type AppConfig struct {
	Name        string `yaml:"name"        env:"APP_NAME"        env-default:"waxal"`
	Environment string `yaml:"environment" env:"APP_ENVIRONMENT" env-default:"development"`
	Version     string `yaml:"version"     env:"APP_VERSION"     env-default:"dev"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"             env:"SERVER_HOST"             env-default:"0.0.0.0"`
	Port            int           `yaml:"port"             env:"PORT"                    env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
	// TurnTimeout bounds one webhook turn, including every adapter call.
	TurnTimeout time.Duration `yaml:"turn_timeout" env:"SERVER_TURN_TIMEOUT" env-default:"55s"`
}

type LogConfig struct {
	Mode string `yaml:"mode" env:"LOG_MODE" env-default:"development"`
}

type TwilioConfig struct {
	AccountSID          string        `yaml:"account_sid"           env:"TWILIO_ACCOUNT_SID"`
	AuthToken           string        `yaml:"auth_token"            env:"TWILIO_AUTH_TOKEN"`
	APIKey              string        `yaml:"api_key"               env:"TWILIO_API_KEY"`
	APIKeySecret        string        `yaml:"api_key_secret"        env:"TWILIO_API_KEY_SECRET"`
	BaseURL             string        `yaml:"base_url"              env:"TWILIO_BASE_URL"`
	MessagingServiceSID string        `yaml:"messaging_service_sid" env:"TWILIO_MESSAGING_SERVICE_SID"`
	StatusCallbackURL   string        `yaml:"status_callback_url"   env:"TWILIO_STATUS_CALLBACK_URL"`
	Timeout             time.Duration `yaml:"timeout"               env:"TWILIO_TIMEOUT"               env-default:"15s"`
	MaxRetries          int           `yaml:"max_retries"           env:"TWILIO_MAX_RETRIES"           env-default:"4"`
	MaxMediaBytes       int64         `yaml:"max_media_bytes"       env:"TWILIO_MAX_MEDIA_BYTES"       env-default:"16777216"`
	// ValidateSignature turns on X-Twilio-Signature checks. PublicURL is the
	// externally visible base URL Twilio signs against.
	ValidateSignature bool   `yaml:"validate_signature" env:"TWILIO_VALIDATE_SIGNATURE" env-default:"false"`
	PublicURL         string `yaml:"public_url"         env:"TWILIO_WEBHOOK_PUBLIC_URL"`
}

type StorageConfig struct {
	Bucket        string `yaml:"bucket"          env:"STORAGE_BUCKET"`
	CDNDomain     string `yaml:"cdn_domain"      env:"STORAGE_CDN_DOMAIN"`
	PublicBaseURL string `yaml:"public_base_url" env:"OBJECT_STORAGE_PUBLIC_BASE_URL"`
	CacheControl  string `yaml:"cache_control"   env:"STORAGE_CACHE_CONTROL"         env-default:"public, max-age=31536000"`
	Mode          string `yaml:"mode"            env:"OBJECT_STORAGE_MODE"`
	EmulatorHost  string `yaml:"emulator_host"   env:"STORAGE_EMULATOR_HOST"`
}

const (
	RecordsSheets = "sheets"
	RecordsSQL    = "sql"
	RecordsMemory = "memory"
)

type RecordsConfig struct {
	Backend   string `yaml:"backend"    env:"RECORDS_BACKEND"    env-default:"sheets"`
	SQLDriver string `yaml:"sql_driver" env:"RECORDS_SQL_DRIVER" env-default:"postgres"`
	SQLDSN    string `yaml:"sql_dsn"    env:"RECORDS_SQL_DSN"`
}

type RedisConfig struct {
	Addr      string        `yaml:"addr"       env:"REDIS_ADDR"`
	Password  string        `yaml:"password"   env:"REDIS_PASSWORD"`
	DB        int           `yaml:"db"         env:"REDIS_DB"         env-default:"0"`
	Prefix    string        `yaml:"prefix"     env:"REDIS_PREFIX"     env-default:"waxal:inbound:"`
	DedupeTTL time.Duration `yaml:"dedupe_ttl" env:"REDIS_DEDUPE_TTL" env-default:"24h"`
}

type OtelConfig struct {
	Enabled     bool    `yaml:"enabled"      env:"OTEL_ENABLED"                env-default:"false"`
	Endpoint    string  `yaml:"endpoint"     env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Headers     string  `yaml:"headers"      env:"OTEL_EXPORTER_OTLP_HEADERS"`
	Insecure    bool    `yaml:"insecure"     env:"OTEL_EXPORTER_OTLP_INSECURE" env-default:"false"`
	SampleRatio float64 `yaml:"sample_ratio" env:"OTEL_SAMPLER_RATIO"          env-default:"0.1"`
}

type MetricsConfig struct {
	Enabled        bool          `yaml:"enabled"         env:"METRICS_ENABLED"         env-default:"true"`
	Runtime        bool          `yaml:"runtime"         env:"METRICS_RUNTIME"         env-default:"true"`
	ScrapeInterval time.Duration `yaml:"scrape_interval" env:"METRICS_SCRAPE_INTERVAL" env-default:"10s"`
}

// AdminConfig protects the operator API. An empty secret leaves the API
// unmounted.
type AdminConfig struct {
	JWTSecret string `yaml:"jwt_secret" env:"ADMIN_JWT_SECRET"`
	JWTIssuer string `yaml:"jwt_issuer" env:"ADMIN_JWT_ISSUER" env-default:"waxal"`
}

type CORSConfig struct {
	AllowedOrigins string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-default:"*"`
}

// VarsConfig points at the variables file (YAML or JSON) holding message
// assets, thresholds, sheet IDs and credentials.
type VarsConfig struct {
	Path string `yaml:"path" env:"VARS_PATH" env-default:"./vars.yaml"`
}

type MediaConfig struct {
	FFprobePath string        `yaml:"ffprobe_path" env:"FFPROBE_PATH" env-default:"ffprobe"`
	WorkRoot    string        `yaml:"work_root"    env:"MEDIA_WORK_ROOT"`
	Timeout     time.Duration `yaml:"timeout"      env:"MEDIA_PROBE_TIMEOUT" env-default:"30s"`
	MaxBytes    int64         `yaml:"max_bytes"    env:"MEDIA_MAX_BYTES"     env-default:"16777216"`
}
