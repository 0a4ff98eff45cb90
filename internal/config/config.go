package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all runtime settings, sourced from the environment.
type Config struct {
	Port      string `env:"PORT" envDefault:"8080"`
	MongoURI  string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017/eventboard"`
	Namespace string `env:"NAMESPACE" envDefault:"default"`

	// AdminPIN is the shared secret for the admin gate, either plaintext or
	// a bcrypt hash. It gates UI controls only and is not a security
	// boundary.
	AdminPIN string `env:"ADMIN_PIN,required"`

	// TokenSecret signs viewer identity tokens.
	TokenSecret string `env:"TOKEN_SECRET,required"`

	CarouselInterval time.Duration `env:"CAROUSEL_INTERVAL" envDefault:"5s"`
	ImminentWindow   time.Duration `env:"IMMINENT_WINDOW" envDefault:"48h"`
	Debug            bool          `env:"DEBUG" envDefault:"false"`
}

// Load reads a .env file if one is present, then parses the process
// environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
