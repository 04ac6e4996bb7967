package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel     string `yaml:"log_level"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
}

type HTTPConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type BusConfig struct {
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	StoreDir       string   `yaml:"store_dir"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

type JobStoreConfig struct {
	Path          string `yaml:"path"`
	RetentionMode string `yaml:"retention_mode"`
	RetentionDays int    `yaml:"retention_days"`
	MaxJobs       int    `yaml:"max_jobs"`
	VacuumOnStart bool   `yaml:"vacuum_on_start"`
}

type TranscriberConfig struct {
	Mode             string `yaml:"mode"` // mock, exec
	PythonCommand    string `yaml:"python_command"`
	DefaultModelSize string `yaml:"default_model_size"`
	TimeoutMS        int    `yaml:"timeout_ms"`
	MaxInflight      int    `yaml:"max_inflight"`
}

type Config struct {
	ServiceName string            `yaml:"service_name"`
	Environment string            `yaml:"environment"`
	HTTP        HTTPConfig        `yaml:"http"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	Bus         BusConfig         `yaml:"bus"`
	JobStore    JobStoreConfig    `yaml:"job_store"`
	Transcriber TranscriberConfig `yaml:"transcriber"`
}

func Default() Config {
	return Config{
		ServiceName: "verbatimd",
		Environment: "development",
		HTTP: HTTPConfig{
			Bind: "0.0.0.0",
			Port: 8091,
		},
		Telemetry: TelemetryConfig{
			LogLevel:     "info",
			OTLPEndpoint: "",
			OTLPInsecure: true,
		},
		Bus: BusConfig{
			Embedded:       true,
			Port:           4222,
			StoreDir:       "./data/nats",
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		JobStore: JobStoreConfig{
			Path:          "./data/verbatim-jobs.db",
			RetentionMode: "persistent",
			RetentionDays: 30,
			MaxJobs:       10000,
		},
		Transcriber: TranscriberConfig{
			Mode:             "exec",
			PythonCommand:    "python3",
			DefaultModelSize: "base",
			TimeoutMS:        120000,
			MaxInflight:      2,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.ServiceName, "VERBATIM_SERVICE_NAME")
	overrideString(&cfg.Environment, "VERBATIM_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "VERBATIM_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "VERBATIM_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "VERBATIM_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "VERBATIM_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "VERBATIM_TELEMETRY_OTLP_INSECURE")
	overrideBool(&cfg.Bus.Embedded, "VERBATIM_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "VERBATIM_BUS_PORT")
	overrideString(&cfg.Bus.StoreDir, "VERBATIM_BUS_STORE_DIR")
	overrideStringSlice(&cfg.Bus.Servers, "VERBATIM_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "VERBATIM_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "VERBATIM_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "VERBATIM_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "VERBATIM_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "VERBATIM_BUS_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.JobStore.Path, "VERBATIM_JOB_STORE_PATH")
	overrideString(&cfg.JobStore.RetentionMode, "VERBATIM_JOB_STORE_RETENTION_MODE")
	overrideInt(&cfg.JobStore.RetentionDays, "VERBATIM_JOB_STORE_RETENTION_DAYS")
	overrideInt(&cfg.JobStore.MaxJobs, "VERBATIM_JOB_STORE_MAX_JOBS")
	overrideBool(&cfg.JobStore.VacuumOnStart, "VERBATIM_JOB_STORE_VACUUM_ON_START")
	overrideString(&cfg.Transcriber.Mode, "VERBATIM_TRANSCRIBER_MODE")
	overrideString(&cfg.Transcriber.PythonCommand, "VERBATIM_TRANSCRIBER_PYTHON_COMMAND")
	overrideString(&cfg.Transcriber.DefaultModelSize, "VERBATIM_TRANSCRIBER_DEFAULT_MODEL_SIZE")
	overrideInt(&cfg.Transcriber.TimeoutMS, "VERBATIM_TRANSCRIBER_TIMEOUT_MS")
	overrideInt(&cfg.Transcriber.MaxInflight, "VERBATIM_TRANSCRIBER_MAX_INFLIGHT")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func validate(cfg Config) error {
	if cfg.ServiceName == "" {
		return errors.New("service_name must not be empty")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	if cfg.Bus.Embedded {
		if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
			return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
		}
	} else {
		if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
	}
	switch cfg.JobStore.RetentionMode {
	case "ephemeral", "persistent":
		// ok
	default:
		return errors.New("job_store.retention_mode must be one of ephemeral|persistent")
	}
	if cfg.JobStore.RetentionMode == "persistent" && cfg.JobStore.Path == "" {
		return errors.New("job_store.path must not be empty in persistent mode")
	}
	if cfg.JobStore.RetentionDays < 0 {
		return errors.New("job_store.retention_days must be >= 0")
	}
	switch cfg.Transcriber.Mode {
	case "mock", "exec":
	default:
		return errors.New("transcriber.mode must be one of mock|exec")
	}
	if cfg.Transcriber.Mode == "exec" && cfg.Transcriber.PythonCommand == "" {
		return errors.New("transcriber.python_command must be set when mode=exec")
	}
	if cfg.Transcriber.DefaultModelSize == "" {
		return errors.New("transcriber.default_model_size must not be empty")
	}
	if cfg.Transcriber.TimeoutMS <= 0 {
		return errors.New("transcriber.timeout_ms must be positive")
	}
	if cfg.Transcriber.MaxInflight <= 0 {
		return errors.New("transcriber.max_inflight must be >= 1")
	}
	return nil
}
