package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/matchwatch/livealert/internal/platform/logging"
)

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

// Config stores runtime configuration for the worker.
type Config struct {
	AppEnv         string
	ServiceName    string
	ServiceVersion string
	HTTPAddr       string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration

	DBURL                   string
	DBDisablePreparedBinary bool

	CacheEnabled bool
	CacheTTL     time.Duration

	PollInterval           time.Duration
	GameDelay              time.Duration
	FetchWorkers           int
	HalftimeConfirmWindow  time.Duration
	ExportDir              string
	ExportFilename         string

	BetsiteBaseURL               string
	BetsiteTimeout               time.Duration
	BetsiteMaxRetries            int
	BetsiteCircuitEnabled        bool
	BetsiteCircuitFailureCount   int
	BetsiteCircuitOpenTimeout    time.Duration
	BetsiteCircuitHalfOpenMaxReq int

	UptraceEnabled bool
	UptraceDSN     string

	PyroscopeEnabled           bool
	PyroscopeServerAddress     string
	PyroscopeAppName           string
	PyroscopeAuthToken         string
	PyroscopeBasicAuthUser     string
	PyroscopeBasicAuthPassword string
	PyroscopeUploadRate        time.Duration

	LogLevel logging.Level
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	pollInterval, err := time.ParseDuration(getEnv("POLL_INTERVAL", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse POLL_INTERVAL: %w", err)
	}
	if pollInterval <= 0 {
		return Config{}, fmt.Errorf("POLL_INTERVAL must be > 0")
	}

	gameDelay, err := time.ParseDuration(getEnv("GAME_DELAY", "1500ms"))
	if err != nil {
		return Config{}, fmt.Errorf("parse GAME_DELAY: %w", err)
	}
	if gameDelay < 0 {
		return Config{}, fmt.Errorf("GAME_DELAY must be >= 0")
	}

	fetchWorkers, err := getEnvAsInt("FETCH_WORKERS", 4)
	if err != nil {
		return Config{}, fmt.Errorf("parse FETCH_WORKERS: %w", err)
	}
	if fetchWorkers < 1 {
		return Config{}, fmt.Errorf("FETCH_WORKERS must be >= 1")
	}

	halftimeConfirm, err := getEnvAsInt("HALFTIME_CONFIRM_SECONDS", 120)
	if err != nil {
		return Config{}, fmt.Errorf("parse HALFTIME_CONFIRM_SECONDS: %w", err)
	}
	if halftimeConfirm < 0 {
		return Config{}, fmt.Errorf("HALFTIME_CONFIRM_SECONDS must be >= 0")
	}

	betsiteTimeout, err := time.ParseDuration(getEnv("BETSITE_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse BETSITE_TIMEOUT: %w", err)
	}
	if betsiteTimeout <= 0 {
		return Config{}, fmt.Errorf("BETSITE_TIMEOUT must be > 0")
	}
	betsiteMaxRetries, err := getEnvAsInt("BETSITE_MAX_RETRIES", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse BETSITE_MAX_RETRIES: %w", err)
	}
	if betsiteMaxRetries < 0 {
		return Config{}, fmt.Errorf("BETSITE_MAX_RETRIES must be >= 0")
	}
	betsiteCircuitEnabled, err := strconv.ParseBool(getEnv("BETSITE_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse BETSITE_CIRCUIT_ENABLED: %w", err)
	}
	betsiteCircuitFailureCount, err := getEnvAsInt("BETSITE_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse BETSITE_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	if betsiteCircuitFailureCount < 1 {
		return Config{}, fmt.Errorf("BETSITE_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	betsiteCircuitOpenTimeout, err := time.ParseDuration(getEnv("BETSITE_CIRCUIT_OPEN_TIMEOUT", "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse BETSITE_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	if betsiteCircuitOpenTimeout <= 0 {
		return Config{}, fmt.Errorf("BETSITE_CIRCUIT_OPEN_TIMEOUT must be > 0")
	}
	betsiteCircuitHalfOpenMaxReq, err := getEnvAsInt("BETSITE_CIRCUIT_HALF_OPEN_MAX_REQ", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse BETSITE_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}
	if betsiteCircuitHalfOpenMaxReq < 1 {
		return Config{}, fmt.Errorf("BETSITE_CIRCUIT_HALF_OPEN_MAX_REQ must be >= 1")
	}

	uptraceEnabled, err := strconv.ParseBool(getEnv("UPTRACE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_ENABLED: %w", err)
	}
	uptraceDSN := strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if uptraceEnabled && uptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}

	pyroscopeEnabled, err := strconv.ParseBool(getEnv("PYROSCOPE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_ENABLED: %w", err)
	}
	pyroscopeServerAddress := strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if pyroscopeEnabled && pyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	pyroscopeUploadRate, err := time.ParseDuration(getEnv("PYROSCOPE_UPLOAD_RATE", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_UPLOAD_RATE: %w", err)
	}
	if pyroscopeUploadRate <= 0 {
		return Config{}, fmt.Errorf("PYROSCOPE_UPLOAD_RATE must be > 0")
	}

	dbDisablePreparedBinary, err := strconv.ParseBool(getEnv("DB_DISABLE_PREPARED_BINARY_RESULT", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse DB_DISABLE_PREPARED_BINARY_RESULT: %w", err)
	}

	cacheEnabled, err := strconv.ParseBool(getEnv("CACHE_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CACHE_ENABLED: %w", err)
	}
	cacheTTL, err := time.ParseDuration(getEnv("CACHE_TTL", "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CACHE_TTL: %w", err)
	}
	if cacheTTL <= 0 {
		return Config{}, fmt.Errorf("CACHE_TTL must be > 0")
	}

	readTimeout, err := time.ParseDuration(getEnv("APP_READ_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_READ_TIMEOUT: %w", err)
	}
	writeTimeout, err := time.ParseDuration(getEnv("APP_WRITE_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_WRITE_TIMEOUT: %w", err)
	}

	cfg := Config{
		AppEnv:                       appEnv,
		ServiceName:                  getEnv("APP_SERVICE_NAME", "livealert-worker"),
		ServiceVersion:               getEnv("APP_SERVICE_VERSION", "dev"),
		HTTPAddr:                     getEnv("APP_HTTP_ADDR", ":8080"),
		ReadTimeout:                  readTimeout,
		WriteTimeout:                 writeTimeout,
		DBURL:                        getEnv("DB_URL", ""),
		DBDisablePreparedBinary:      dbDisablePreparedBinary,
		CacheEnabled:                 cacheEnabled,
		CacheTTL:                     cacheTTL,
		PollInterval:                 pollInterval,
		GameDelay:                    gameDelay,
		FetchWorkers:                 fetchWorkers,
		HalftimeConfirmWindow:        time.Duration(halftimeConfirm) * time.Second,
		ExportDir:                    getEnv("EXPORT_DIR", "./exports"),
		ExportFilename:               getEnv("EXPORT_FILENAME", "alerts.csv"),
		BetsiteBaseURL:               strings.TrimSpace(getEnv("BETSITE_BASE_URL", "")),
		BetsiteTimeout:               betsiteTimeout,
		BetsiteMaxRetries:            betsiteMaxRetries,
		BetsiteCircuitEnabled:        betsiteCircuitEnabled,
		BetsiteCircuitFailureCount:   betsiteCircuitFailureCount,
		BetsiteCircuitOpenTimeout:    betsiteCircuitOpenTimeout,
		BetsiteCircuitHalfOpenMaxReq: betsiteCircuitHalfOpenMaxReq,
		UptraceEnabled:               uptraceEnabled,
		UptraceDSN:                   uptraceDSN,
		PyroscopeEnabled:             pyroscopeEnabled,
		PyroscopeServerAddress:       pyroscopeServerAddress,
		PyroscopeAuthToken:           strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeBasicAuthUser:       strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", "")),
		PyroscopeBasicAuthPassword:   strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", "")),
		PyroscopeUploadRate:          pyroscopeUploadRate,
		LogLevel:                     logging.ParseLevel(getEnv("APP_LOG_LEVEL", "info")),
	}
	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	if cfg.PyroscopeEnabled && cfg.PyroscopeAppName == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_APP_NAME cannot be empty when PYROSCOPE_ENABLED=true")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}
	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return out, nil
}

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}
