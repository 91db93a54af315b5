package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PIISCAN_"

// LoadDotEnv loads .env files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) {
	for _, p := range paths {
		_ = godotenv.Load(p)
	}
}

// ApplyEnv overrides cfg with PIISCAN_* variables.
func ApplyEnv(cfg *FileConfig) error {
	if v, ok := env("LANGUAGE"); ok {
		cfg.Language = &v
	}
	if v, ok := env("LANGUAGES"); ok {
		cfg.Languages = splitList(v)
	}
	if v, ok := env("ENTITIES"); ok {
		cfg.Entities = splitList(v)
	}
	if v, ok := env("SCORE_THRESHOLD"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%sSCORE_THRESHOLD: %w", EnvPrefix, err)
		}
		cfg.ScoreThreshold = &f
	}
	if v, ok := env("WORKERS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sWORKERS: %w", EnvPrefix, err)
		}
		cfg.Workers = &n
	}
	if v, ok := env("ENABLE_TRACE_PII"); ok {
		b := v == "1" || strings.EqualFold(v, "true")
		cfg.EnableTracePII = &b
	}
	if v, ok := env("TRACE_FILE"); ok {
		cfg.TraceFile = &v
	}
	if v, ok := env("LOG_LEVEL"); ok {
		cfg.LogLevel = &v
	}
	if v, ok := env("LOG_FORMAT"); ok {
		cfg.LogFormat = &v
	}
	if v, ok := env("ADDR"); ok {
		cfg.Addr = &v
	}
	engine, hasEngine := env("NLP_ENGINE")
	url, hasURL := env("NLP_URL")
	if hasEngine || hasURL {
		n := cfg.GetNLP()
		if hasURL {
			n.URL = &url
			if !hasEngine && (cfg.NLP == nil || cfg.NLP.Engine == nil) {
				engine, hasEngine = "sidecar", true
			}
		}
		if hasEngine {
			n.Engine = &engine
		}
		cfg.NLP = &n
	}
	return nil
}

func env(name string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + name)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
