package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	portEnvVar    = "PORT"
	appNameVar    = "APP_NAME"
	folderEnvVar  = "FOLDER"
	apiURLVar     = "API_URL"
	apiTimeoutVar = "API_TIMEOUT_SECONDS"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "3000")
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Merch Store")
}

func (EnvVars) GetDataFolder() string {
	return GetEnv(folderEnvVar, "./data")
}

// GetAPIURL returns the base URL of the backend API (e.g., "https://api.example.com")
// without a trailing slash
func (EnvVars) GetAPIURL() string {
	return strings.TrimRight(GetEnv(apiURLVar, "http://localhost:3001"), "/")
}

func (EnvVars) GetRequestTimeout() time.Duration {
	return time.Duration(GetEnvInt(apiTimeoutVar, 15)) * time.Second
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

func GetEnvInt(envVar string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(envVar))
	if err != nil {
		return defaultValue
	}
	return value
}

// GetRecaptchaSiteKey returns the public reCAPTCHA key; empty disables the widget
func (EnvVars) GetRecaptchaSiteKey() string {
	return GetEnv("RECAPTCHA_SITE_KEY", "")
}
