package config

import "time"

type Config interface {
	EnvConfig
	CorsConfig
	SessionConfig
	StorageConfig
	CheckoutConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetDataFolder() string
	GetAPIURL() string
	GetRequestTimeout() time.Duration
	GetEnv() string
	GetRecaptchaSiteKey() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	*Session
	Storage
	Checkout
}

func New() Config {
	return mainConfig{Session: &Session{}}
}
