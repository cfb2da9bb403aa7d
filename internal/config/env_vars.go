package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	portEnvVar    = "PORT"
	appNameVar    = "APP_NAME"
	baseURLVar    = "BASE_URL"
	envVar        = "ENV"
	logLevelVar   = "LOG_LEVEL"
	outboundTOVar = "OUTBOUND_TIMEOUT"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "MCP Auth Gateway")
}

// GetBaseURL returns the public base URL of the gateway (e.g., "https://mcp.example.com").
// Provider callbacks, the issuer and every metadata URL are built from it.
// Empty means the server derives it from each request.
func (EnvVars) GetBaseURL() string {
	return strings.TrimRight(GetEnv(baseURLVar, ""), "/")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv(envVar)
	if env == "" {
		return "DEV"
	}
	return env
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelVar, "info")
}

// GetOutboundTimeout bounds each call to an identity provider or tool backend.
func (EnvVars) GetOutboundTimeout() time.Duration {
	return GetDuration(outboundTOVar, 10*time.Second)
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetBool reads true/false style values; anything unparseable is the default.
func GetBool(envVar string, defaultValue bool) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(envVar)))
	if err != nil {
		return defaultValue
	}
	return b
}

// GetDuration accepts Go durations ("15s") or plain seconds ("15").
func GetDuration(envVar string, defaultValue time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(envVar))
	if raw == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

// GetList splits a comma separated variable, dropping empty entries.
func GetList(envVar string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(envVar), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
