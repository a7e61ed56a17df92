package config

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

// fromMap builds an envReader over a fixed environment.
func fromMap(env map[string]string) *envReader {
	return &envReader{lookup: func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}}
}

func mustLoadMap(t *testing.T, env map[string]string) Config {
	t.Helper()
	cfg, err := load(fromMap(env))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return cfg
}

func TestLoad_Defaults(t *testing.T) {
	cfg := mustLoadMap(t, nil)

	if cfg.Port != "8080" || cfg.GinMode != "release" || cfg.LogLevel != "info" || cfg.APIBasePath != "/api/v1" {
		t.Fatalf("server defaults: %+v", cfg)
	}
	if cfg.DBPath != "assets/server.db" || cfg.DataDir != "assets/data" || cfg.AssetsDir != "assets" {
		t.Fatalf("storage defaults: %+v", cfg)
	}
	if cfg.RateRPS != 5 || cfg.RateBurst != 10 || cfg.IdempotencyTTL != 24*time.Hour {
		t.Fatalf("limits defaults: %+v", cfg)
	}
	if cfg.CORS.AllowedOrigins != nil || cfg.Security.APIKey != "" || cfg.Security.HSTSMaxAge != 180*24*time.Hour {
		t.Fatalf("web defaults: %+v %+v", cfg.CORS, cfg.Security)
	}
	want := BrowserConfig{
		Headless:      true,
		ProfileDir:    "assets/browser",
		ActionTimeout: 30 * time.Second,
		MinDelay:      5 * time.Second,
		MaxDelay:      8 * time.Second,
	}
	if cfg.Browser != want {
		t.Fatalf("browser defaults = %+v", cfg.Browser)
	}
	w := cfg.Workers
	if w.PendingPollInterval != 5*time.Second || w.PendingPollBatch != 10 || w.SchedulerInterval != 30*time.Second {
		t.Fatalf("worker defaults: %+v", w)
	}
	if w.StuckRunPolicy != StuckRunNone || w.StuckRunAfter != 30*time.Minute || w.MaxTransitions != 16 {
		t.Fatalf("worker defaults: %+v", w)
	}
	if cfg.OTEL.Enabled || !cfg.OTEL.Insecure || cfg.OTEL.SampleRatio != 1 {
		t.Fatalf("otel defaults: %+v", cfg.OTEL)
	}
}

func TestLoad_Overrides(t *testing.T) {
	cfg := mustLoadMap(t, map[string]string{
		"PORT":                        "8088",
		"READ_TIMEOUT":                "2s",
		"MAX_HEADER_BYTES":            "8192",
		"GIN_MODE":                    "Debug",
		"LOG_LEVEL":                   "WARNING",
		"LOG_PRETTY":                  "yes",
		"SWAGGER_ENABLED":             "on",
		"API_BASE_PATH":               "outreach/v2/",
		"API_KEY":                     "  s3cret ",
		"CORS_ALLOWED_ORIGINS":        " https://ops.example.com , , http://localhost:3000 ",
		"ENABLE_HSTS":                 "TRUE",
		"BROWSER_HEADLESS":            "false",
		"BROWSER_EXEC_PATH":           "/usr/bin/chromium",
		"STUCK_RUN_POLICY":            "Requeue",
		"STUCK_RUN_AFTER":             "45m",
		"FUNNEL_MAX_TRANSITIONS":      "4",
		"OTEL_ENABLED":                "1",
		"OTEL_EXPORTER_OTLP_ENDPOINT": "otel:4317",
		"OTEL_TRACES_SAMPLER_ARG":     "0.25",
	})

	if cfg.Port != "8088" || cfg.ReadTimeout != 2*time.Second || cfg.MaxHeaderBytes != 8192 || cfg.GinMode != "debug" {
		t.Fatalf("server: %+v", cfg)
	}
	if cfg.LogLevel != "warn" || !cfg.LogPretty || !cfg.SwaggerEnabled || cfg.APIBasePath != "/outreach/v2" {
		t.Fatalf("logging/docs: %+v", cfg)
	}
	if cfg.Security.APIKey != "s3cret" || !cfg.Security.EnableHSTS {
		t.Fatalf("security: %+v", cfg.Security)
	}
	if !reflect.DeepEqual(cfg.CORS.AllowedOrigins, []string{"https://ops.example.com", "http://localhost:3000"}) {
		t.Fatalf("cors: %#v", cfg.CORS.AllowedOrigins)
	}
	if cfg.Browser.Headless || cfg.Browser.ExecPath != "/usr/bin/chromium" {
		t.Fatalf("browser: %+v", cfg.Browser)
	}
	if cfg.Workers.StuckRunPolicy != StuckRunRequeue || cfg.Workers.StuckRunAfter != 45*time.Minute || cfg.Workers.MaxTransitions != 4 {
		t.Fatalf("workers: %+v", cfg.Workers)
	}
	if !cfg.OTEL.Enabled || cfg.OTEL.Endpoint != "otel:4317" || cfg.OTEL.SampleRatio != 0.25 {
		t.Fatalf("otel: %+v", cfg.OTEL)
	}
}

func TestLoad_Normalization(t *testing.T) {
	cfg := mustLoadMap(t, map[string]string{
		"GIN_MODE":          "weird",
		"BROWSER_MIN_DELAY": "3s",
		"BROWSER_MAX_DELAY": "1s",
		"API_BASE_PATH":     " / ",
		"DB_PATH":           "   ",
	})
	if cfg.GinMode != "release" {
		t.Fatalf("gin mode = %q", cfg.GinMode)
	}
	if cfg.Browser.MaxDelay != 3*time.Second {
		t.Fatalf("max delay should be raised to min delay, got %v", cfg.Browser.MaxDelay)
	}
	if cfg.APIBasePath != "/" {
		t.Fatalf("base path = %q", cfg.APIBasePath)
	}
	// blank counts as unset
	if cfg.DBPath != "assets/server.db" {
		t.Fatalf("db path = %q", cfg.DBPath)
	}
}

func TestLoad_MalformedValues(t *testing.T) {
	_, err := load(fromMap(map[string]string{
		"RATE_RPS":         "fast",
		"RATE_BURST":       "ten",
		"LOG_PRETTY":       "sometimes",
		"STUCK_RUN_AFTER":  "30 minutes",
		"BROWSER_HEADLESS": "2",
	}))
	if err == nil {
		t.Fatalf("expected errors")
	}
	for _, want := range []string{
		`RATE_RPS: "fast" is not a valid number`,
		`RATE_BURST: "ten" is not a valid integer`,
		`LOG_PRETTY: "sometimes" is not a valid boolean`,
		`STUCK_RUN_AFTER: "30 minutes" is not a valid duration`,
		`BROWSER_HEADLESS: "2" is not a valid boolean`,
	} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("missing %q in:\n%v", want, err)
		}
	}
}

func TestLoad_ConstraintErrors(t *testing.T) {
	cases := []struct {
		key, val, want string
	}{
		{"LOG_LEVEL", "verbose", "LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic"},
		{"PORT", "http", "PORT must be numeric"},
		{"READ_TIMEOUT", "0s", "READ_TIMEOUT must be > 0"},
		{"MAX_HEADER_BYTES", "0", "MAX_HEADER_BYTES must be > 0"},
		{"RATE_RPS", "-1", "RATE_RPS must be >= 0"},
		{"RATE_BURST", "0", "RATE_BURST must be >= 1"},
		{"HSTS_MAX_AGE", "-1s", "HSTS_MAX_AGE must be >= 0"},
		{"IDEMPOTENCY_TTL", "0s", "IDEMPOTENCY_TTL must be > 0"},
		{"BROWSER_ACTION_TIMEOUT", "0s", "BROWSER_ACTION_TIMEOUT must be > 0"},
		{"PENDING_POLL_INTERVAL", "0s", "PENDING_POLL_INTERVAL must be > 0"},
		{"PENDING_POLL_BATCH", "0", "PENDING_POLL_BATCH must be >= 1"},
		{"SCHEDULER_INTERVAL", "-5s", "SCHEDULER_INTERVAL must be > 0"},
		{"STUCK_RUN_POLICY", "retry-forever", "STUCK_RUN_POLICY must be one of: none, fail, requeue"},
		{"STUCK_RUN_AFTER", "0s", "STUCK_RUN_AFTER must be > 0"},
		{"FUNNEL_MAX_TRANSITIONS", "0", "FUNNEL_MAX_TRANSITIONS must be >= 1"},
		{"OTEL_TRACES_SAMPLER_ARG", "1.5", "OTEL_TRACES_SAMPLER_ARG must be <= 1"},
	}
	for _, tc := range cases {
		t.Run(tc.key, func(t *testing.T) {
			_, err := load(fromMap(map[string]string{tc.key: tc.val}))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("got %v; want %q", err, tc.want)
			}
			if n := strings.Count(err.Error(), "\n") + 1; n != 1 {
				t.Fatalf("expected exactly one error, got %d:\n%v", n, err)
			}
		})
	}
}

func TestValidate_RequiredFields(t *testing.T) {
	cfg := mustLoadMap(t, nil)
	cfg.DBPath = ""
	cfg.Browser.ProfileDir = ""
	cfg.OTEL.Enabled = true
	cfg.OTEL.Endpoint = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatalf("expected errors")
	}
	for _, want := range []string{
		"DB_PATH must not be empty",
		"BROWSER_PROFILE_DIR must not be empty",
		"OTEL_EXPORTER_OTLP_ENDPOINT must not be empty",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("missing %q in:\n%v", want, err)
		}
	}

	cfg.OTEL.Enabled = false
	cfg.DBPath, cfg.Browser.ProfileDir = "server.db", "browser"
	if err := Validate(cfg); err != nil {
		t.Fatalf("disabled OTEL needs no endpoint: %v", err)
	}
}

func TestLoad_ReadsProcessEnv(t *testing.T) {
	t.Setenv("PORT", "9091")
	t.Setenv("STUCK_RUN_POLICY", "fail")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9091" || cfg.Workers.StuckRunPolicy != StuckRunFail {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestMustLoad(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		if cfg := MustLoad(); cfg.APIBasePath == "" {
			t.Fatalf("unexpected empty config")
		}
	})
	t.Run("invalid panics", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "verbose")
		defer func() {
			if recover() == nil {
				t.Fatalf("MustLoad should panic on invalid config")
			}
		}()
		_ = MustLoad()
	})
}

func TestNormalizeBasePath(t *testing.T) {
	for in, want := range map[string]string{
		"":         "/",
		" / ":      "/",
		"v1":       "/v1",
		"/api/v1/": "/api/v1",
		"//x//":    "/x",
	} {
		if got := normalizeBasePath(in); got != want {
			t.Fatalf("normalizeBasePath(%q) = %q; want %q", in, got, want)
		}
	}
}
