package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// App holds all runtime configuration, loaded from the environment.
type App struct {
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	JWTSecret   string `envconfig:"JWT_SECRET" required:"true"`

	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`
	BaseURL  string `envconfig:"BASE_URL" default:"http://localhost:8080"`

	// StoreTimeout bounds every call into the data store. Requests either
	// complete or time out as a whole; nothing is cancellable mid-flight.
	StoreTimeout time.Duration `envconfig:"STORE_TIMEOUT" default:"10s"`
}

func Load() (App, error) {
	var c App
	err := envconfig.Process("", &c)
	return c, err
}
