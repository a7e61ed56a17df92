// Package config loads the service configuration from environment
// variables. Every field names its variable in an env tag; validate tags
// hold the constraints checked by Load.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Stuck-run policies applied by the pending-run poller to runs left in
// "running" by a crashed process.
const (
	StuckRunNone    = "none"
	StuckRunFail    = "fail"
	StuckRunRequeue = "requeue"
)

type CORSConfig struct {
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS"`
}

type SecurityConfig struct {
	EnableHSTS bool          `env:"ENABLE_HSTS"`
	HSTSMaxAge time.Duration `env:"HSTS_MAX_AGE" validate:"gte=0"`
	// APIKey protects the API; empty leaves it open.
	APIKey string `env:"API_KEY"`
}

type OTELConfig struct {
	Enabled     bool    `env:"OTEL_ENABLED"`
	Endpoint    string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" validate:"required_if=Enabled true"`
	Insecure    bool    `env:"OTEL_EXPORTER_OTLP_INSECURE"`
	ServiceName string  `env:"OTEL_SERVICE_NAME" validate:"required"`
	SampleRatio float64 `env:"OTEL_TRACES_SAMPLER_ARG" validate:"gte=0,lte=1"`
}

// BrowserConfig controls the Chrome instance driven for each account.
type BrowserConfig struct {
	Headless bool `env:"BROWSER_HEADLESS"`
	// ExecPath empty lets chromedp locate Chrome.
	ExecPath string `env:"BROWSER_EXEC_PATH"`
	// ProfileDir holds one user-data dir per handle.
	ProfileDir    string        `env:"BROWSER_PROFILE_DIR" validate:"required"`
	ActionTimeout time.Duration `env:"BROWSER_ACTION_TIMEOUT" validate:"gt=0"`
	// MinDelay and MaxDelay bound the human-paced pause between actions.
	MinDelay time.Duration `env:"BROWSER_MIN_DELAY" validate:"gte=0"`
	MaxDelay time.Duration `env:"BROWSER_MAX_DELAY" validate:"gte=0"`
}

// WorkersConfig controls the pending-run poller and the cron scheduler.
type WorkersConfig struct {
	PendingPollInterval time.Duration `env:"PENDING_POLL_INTERVAL" validate:"gt=0"`
	PendingPollBatch    int           `env:"PENDING_POLL_BATCH" validate:"min=1"`
	SchedulerInterval   time.Duration `env:"SCHEDULER_INTERVAL" validate:"gt=0"`
	StuckRunPolicy      string        `env:"STUCK_RUN_POLICY" validate:"oneof=none fail requeue"`
	StuckRunAfter       time.Duration `env:"STUCK_RUN_AFTER" validate:"gt=0"`
	// MaxTransitions bounds funnel steps per profile in one campaign batch.
	MaxTransitions int `env:"FUNNEL_MAX_TRANSITIONS" validate:"min=1"`
}

// Config is the full service configuration.
type Config struct {
	Port              string        `env:"PORT" validate:"required,numeric"`
	ReadTimeout       time.Duration `env:"READ_TIMEOUT" validate:"gt=0"`
	ReadHeaderTimeout time.Duration `env:"READ_HEADER_TIMEOUT" validate:"gt=0"`
	WriteTimeout      time.Duration `env:"WRITE_TIMEOUT" validate:"gt=0"`
	IdleTimeout       time.Duration `env:"IDLE_TIMEOUT" validate:"gt=0"`
	MaxHeaderBytes    int           `env:"MAX_HEADER_BYTES" validate:"gt=0"`
	GinMode           string        `env:"GIN_MODE"`

	LogLevel       string `env:"LOG_LEVEL" validate:"oneof=debug info warn error fatal panic"`
	LogPretty      bool   `env:"LOG_PRETTY"`
	SwaggerEnabled bool   `env:"SWAGGER_ENABLED"`
	APIBasePath    string `env:"API_BASE_PATH"`

	// DBPath is the server database (accounts, runs, schedules). DataDir
	// holds one profile database per account; AssetsDir receives
	// screenshots.
	DBPath    string `env:"DB_PATH" validate:"required"`
	DataDir   string `env:"DATA_DIR" validate:"required"`
	AssetsDir string `env:"ASSETS_DIR" validate:"required"`

	RateRPS   float64 `env:"RATE_RPS" validate:"gte=0"`
	RateBurst int     `env:"RATE_BURST" validate:"min=1"`

	CORS     CORSConfig
	Security SecurityConfig

	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" validate:"gt=0"`

	Browser BrowserConfig
	Workers WorkersConfig

	OTEL OTELConfig
}

var validate = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report variables, not Go field names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("env"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}()

// MustLoad is Load for main: it panics on an invalid environment.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads the environment, applies defaults and normalization, and
// validates the result. Malformed values and failed constraints are all
// reported in one joined error.
func Load() (Config, error) {
	return load(newEnvReader())
}

func load(env *envReader) (Config, error) {
	cfg := Config{
		Port:              env.str("PORT", "8080"),
		ReadTimeout:       env.duration("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: env.duration("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      env.duration("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       env.duration("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    env.integer("MAX_HEADER_BYTES", 1<<20),
		GinMode:           env.lower("GIN_MODE", "release"),

		LogLevel:       env.lower("LOG_LEVEL", "info"),
		LogPretty:      env.flag("LOG_PRETTY", false),
		SwaggerEnabled: env.flag("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(env.str("API_BASE_PATH", "/api/v1")),

		DBPath:    env.str("DB_PATH", "assets/server.db"),
		DataDir:   env.str("DATA_DIR", "assets/data"),
		AssetsDir: env.str("ASSETS_DIR", "assets"),

		RateRPS:   env.number("RATE_RPS", 5),
		RateBurst: env.integer("RATE_BURST", 10),

		CORS: CORSConfig{AllowedOrigins: env.list("CORS_ALLOWED_ORIGINS")},
		Security: SecurityConfig{
			EnableHSTS: env.flag("ENABLE_HSTS", false),
			HSTSMaxAge: env.duration("HSTS_MAX_AGE", 180*24*time.Hour),
			APIKey:     env.str("API_KEY", ""),
		},

		IdempotencyTTL: env.duration("IDEMPOTENCY_TTL", 24*time.Hour),

		Browser: BrowserConfig{
			Headless:      env.flag("BROWSER_HEADLESS", true),
			ExecPath:      env.str("BROWSER_EXEC_PATH", ""),
			ProfileDir:    env.str("BROWSER_PROFILE_DIR", "assets/browser"),
			ActionTimeout: env.duration("BROWSER_ACTION_TIMEOUT", 30*time.Second),
			MinDelay:      env.duration("BROWSER_MIN_DELAY", 5*time.Second),
			MaxDelay:      env.duration("BROWSER_MAX_DELAY", 8*time.Second),
		},
		Workers: WorkersConfig{
			PendingPollInterval: env.duration("PENDING_POLL_INTERVAL", 5*time.Second),
			PendingPollBatch:    env.integer("PENDING_POLL_BATCH", 10),
			SchedulerInterval:   env.duration("SCHEDULER_INTERVAL", 30*time.Second),
			StuckRunPolicy:      env.lower("STUCK_RUN_POLICY", StuckRunNone),
			StuckRunAfter:       env.duration("STUCK_RUN_AFTER", 30*time.Minute),
			MaxTransitions:      env.integer("FUNNEL_MAX_TRANSITIONS", 16),
		},

		OTEL: OTELConfig{
			Enabled:     env.flag("OTEL_ENABLED", false),
			Endpoint:    env.str("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    env.flag("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: env.str("OTEL_SERVICE_NAME", "go-outreach-backend"),
			SampleRatio: env.number("OTEL_TRACES_SAMPLER_ARG", 1),
		},
	}

	normalize(&cfg)

	errs := env.errs
	if err := Validate(cfg); err != nil {
		errs = append(errs, err)
	}
	return cfg, errors.Join(errs...)
}

// Validate checks cfg against its validate tags. Each failed constraint is
// one line of the returned error, named by its environment variable.
func Validate(cfg Config) error {
	err := validate.Struct(cfg)
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	msgs := make([]error, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, errors.New(describe(fe)))
	}
	return errors.Join(msgs...)
}

// normalize maps lenient spellings to canonical values.
func normalize(cfg *Config) {
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if cfg.Browser.MaxDelay < cfg.Browser.MinDelay {
		cfg.Browser.MaxDelay = cfg.Browser.MinDelay
	}
}

// describe renders a failed constraint against the variable name.
func describe(fe validator.FieldError) string {
	name := fe.Field()
	switch fe.Tag() {
	case "required", "required_if":
		return name + " must not be empty"
	case "numeric":
		return name + " must be numeric"
	case "oneof":
		return name + " must be one of: " + strings.Join(strings.Fields(fe.Param()), ", ")
	case "gt":
		return fmt.Sprintf("%s must be > %s", name, fe.Param())
	case "gte", "min":
		return fmt.Sprintf("%s must be >= %s", name, fe.Param())
	case "lte", "max":
		return fmt.Sprintf("%s must be <= %s", name, fe.Param())
	}
	return fmt.Sprintf("%s failed %s", name, fe.Tag())
}

// normalizeBasePath ensures a single leading '/' and no trailing one; blank
// means root.
func normalizeBasePath(p string) string {
	return "/" + strings.Trim(strings.TrimSpace(p), "/")
}
