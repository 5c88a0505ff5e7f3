package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rendis/codeflow/internal/validation"
)

// Sandbox modes.
const (
	sandboxInProcess = "in_process"
	sandboxProcess   = "process"
)

// Config holds all codeflow configuration.
// Priority: env vars > settings.json > defaults.
type Config struct {
	ListenAddr           string   `json:"listen_addr" validate:"required"`
	LogLevel             string   `json:"log_level" validate:"oneof=debug info warn warning error"`
	LogFormat            string   `json:"log_format" validate:"oneof=text json"`
	ExecTimeout          Duration `json:"exec_timeout"`
	MaxOutput            int      `json:"max_output" validate:"gte=0"`
	SandboxMode          string   `json:"sandbox_mode" validate:"oneof=in_process process"`
	SandboxMemoryMB      int      `json:"sandbox_memory_mb" validate:"gte=0"`
	SandboxCPUPercent    int      `json:"sandbox_cpu_percent" validate:"gte=0,lte=100"`
	SandboxMaxConcurrent int      `json:"sandbox_max_concurrent" validate:"gte=1"`
	HistoryDriver        string   `json:"history_driver" validate:"oneof=memory libsql"`
	HistoryDSN           string   `json:"history_dsn"`
	HistoryLimit         int      `json:"history_limit" validate:"gte=0"`
	HistoryRetention     Duration `json:"history_retention"`
	HistorySweep         string   `json:"history_sweep" validate:"required"`
	CORSOrigins          []string `json:"cors_origins"`
	RulesDir             string   `json:"rules_dir"`
}

// Duration reads either a Go duration string ("10s") or a number of seconds.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case float64:
		d.Duration = time.Duration(val * float64(time.Second))
		return nil
	case string:
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return err
		}
		d.Duration = parsed
		return nil
	default:
		return fmt.Errorf("invalid duration %s", b)
	}
}

func defaultConfig() Config {
	return Config{
		ListenAddr:           ":5000",
		LogLevel:             "info",
		LogFormat:            "text",
		ExecTimeout:          Duration{10 * time.Second},
		MaxOutput:            10000,
		SandboxMode:          sandboxInProcess,
		SandboxMemoryMB:      128,
		SandboxCPUPercent:    50,
		SandboxMaxConcurrent: 4,
		HistoryDriver:        "memory",
		HistoryDSN:           "file:~/.codeflow/history.db",
		HistoryLimit:         500,
		HistoryRetention:     Duration{24 * time.Hour},
		HistorySweep:         "@every 10m",
		CORSOrigins:          []string{"*"},
	}
}

func codeflowDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".codeflow"
	}
	return filepath.Join(home, ".codeflow")
}

func settingsPath() string {
	return filepath.Join(codeflowDir(), "settings.json")
}

// loadConfig layers settings.json and CODEFLOW_* variables over the
// defaults and validates the result. A missing settings file is not an
// error.
func loadConfig(path string, getenv func(string) string) (Config, error) {
	cfg := defaultConfig()

	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}

	for key, set := range envSetters(&cfg) {
		v := getenv("CODEFLOW_" + strings.ToUpper(key))
		if v == "" {
			continue
		}
		if err := set(v); err != nil {
			return Config{}, fmt.Errorf("CODEFLOW_%s: %w", strings.ToUpper(key), err)
		}
	}

	if err := validation.Struct(&cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// envSetters maps each settings key to a parser that stores an env value.
func envSetters(cfg *Config) map[string]func(string) error {
	str := func(dst *string) func(string) error {
		return func(v string) error { *dst = v; return nil }
	}
	num := func(dst *int) func(string) error {
		return func(v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return err
			}
			*dst = n
			return nil
		}
	}
	dur := func(dst *Duration) func(string) error {
		return func(v string) error {
			return dst.UnmarshalJSON([]byte(strconv.Quote(v)))
		}
	}

	return map[string]func(string) error{
		"listen_addr":            str(&cfg.ListenAddr),
		"log_level":              str(&cfg.LogLevel),
		"log_format":             str(&cfg.LogFormat),
		"exec_timeout":           dur(&cfg.ExecTimeout),
		"max_output":             num(&cfg.MaxOutput),
		"sandbox_mode":           str(&cfg.SandboxMode),
		"sandbox_memory_mb":      num(&cfg.SandboxMemoryMB),
		"sandbox_cpu_percent":    num(&cfg.SandboxCPUPercent),
		"sandbox_max_concurrent": num(&cfg.SandboxMaxConcurrent),
		"history_driver":         str(&cfg.HistoryDriver),
		"history_dsn":            str(&cfg.HistoryDSN),
		"history_limit":          num(&cfg.HistoryLimit),
		"history_retention":      dur(&cfg.HistoryRetention),
		"history_sweep":          str(&cfg.HistorySweep),
		"rules_dir":              str(&cfg.RulesDir),
		"cors_origins": func(v string) error {
			cfg.CORSOrigins = nil
			for _, o := range strings.Split(v, ",") {
				if o = strings.TrimSpace(o); o != "" {
					cfg.CORSOrigins = append(cfg.CORSOrigins, o)
				}
			}
			return nil
		},
	}
}

// configDiff describes what changed between two configurations.
type configDiff struct {
	ReloadHandler bool     // rules, CORS or logging changed; rebuild the API handler
	RestartNeeded []string // fields that require a server restart
}

func diffConfigs(old, new Config) configDiff {
	var d configDiff
	if old.RulesDir != new.RulesDir || old.LogLevel != new.LogLevel || old.LogFormat != new.LogFormat ||
		strings.Join(old.CORSOrigins, ",") != strings.Join(new.CORSOrigins, ",") {
		d.ReloadHandler = true
	}
	if old.ListenAddr != new.ListenAddr {
		d.RestartNeeded = append(d.RestartNeeded, "listen_addr")
	}
	if old.ExecTimeout != new.ExecTimeout || old.MaxOutput != new.MaxOutput || old.SandboxMode != new.SandboxMode ||
		old.SandboxMemoryMB != new.SandboxMemoryMB || old.SandboxCPUPercent != new.SandboxCPUPercent ||
		old.SandboxMaxConcurrent != new.SandboxMaxConcurrent {
		d.RestartNeeded = append(d.RestartNeeded, "sandbox")
	}
	if old.HistoryDriver != new.HistoryDriver || old.HistoryDSN != new.HistoryDSN || old.HistoryLimit != new.HistoryLimit {
		d.RestartNeeded = append(d.RestartNeeded, "history")
	}
	if old.HistoryRetention != new.HistoryRetention || old.HistorySweep != new.HistorySweep {
		d.RestartNeeded = append(d.RestartNeeded, "history_sweep")
	}
	return d
}
