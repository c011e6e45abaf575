package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all runtime configuration for the matching engine and the
// demo driver.
type Config struct {
	LogLevel          string
	AutoCreateSymbols bool
	Symbols           []string
	FirstOrderID      uint64
	MetricsNamespace  string
	DemoSymbol        string
}

// Load reads configuration from environment variables, applies defaults,
// and validates values. It returns an error for any invalid value.
func Load() (*Config, error) {
	logLevel := getStr("LOG_LEVEL", "info")
	if !isValidLogLevel(logLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", logLevel)
	}

	autoCreate, err := getBool("AUTO_CREATE_SYMBOLS", true)
	if err != nil {
		return nil, fmt.Errorf("invalid AUTO_CREATE_SYMBOLS: %w", err)
	}

	symbols := getList("SYMBOLS")

	firstOrderID, err := getUint64("FIRST_ORDER_ID", 1000)
	if err != nil {
		return nil, fmt.Errorf("invalid FIRST_ORDER_ID: %w", err)
	}
	if firstOrderID == 0 {
		return nil, fmt.Errorf("invalid FIRST_ORDER_ID: must be > 0")
	}

	namespace := getStr("METRICS_NAMESPACE", "limitbook")

	demoSymbol := getStr("DEMO_SYMBOL", "BTC-USD")

	if !autoCreate && len(symbols) == 0 {
		return nil, fmt.Errorf("invalid SYMBOLS: must list at least one symbol when AUTO_CREATE_SYMBOLS is false")
	}

	return &Config{
		LogLevel:          logLevel,
		AutoCreateSymbols: autoCreate,
		Symbols:           symbols,
		FirstOrderID:      firstOrderID,
		MetricsNamespace:  namespace,
		DemoSymbol:        demoSymbol,
	}, nil
}

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getBool(key string, defaultVal bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.ParseBool(v)
}

func getUint64(key string, defaultVal uint64) (uint64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.ParseUint(v, 10, 64)
}

// getList splits a comma-separated value, dropping blanks.
func getList(key string) []string {
	var out []string
	for _, s := range strings.Split(os.Getenv(key), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
