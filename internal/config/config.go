package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort string `env:"HTTP_PORT" envDefault:"8080"`
	AppEnv   string `env:"APP_ENV" envDefault:"development"`

	DatabaseURL      string        `env:"DATABASE_URL,required"`
	DBConnectTimeout time.Duration `env:"DB_CONNECT_TIMEOUT" envDefault:"5s"`
	StoreTimeout     time.Duration `env:"STORE_TIMEOUT" envDefault:"3s"`
	RunMigrations    bool          `env:"RUN_MIGRATIONS" envDefault:"true"`

	JWTSecret        string        `env:"JWT_SECRET,required,unset"`
	JWTIssuer        string        `env:"JWT_ISSUER" envDefault:"dev-event"`
	TokenTTL         time.Duration `env:"TOKEN_TTL" envDefault:"168h"`
	RefreshThreshold time.Duration `env:"TOKEN_REFRESH_THRESHOLD" envDefault:"24h"`
	ClockSkew        time.Duration `env:"TOKEN_CLOCK_SKEW" envDefault:"15s"`

	CookieName      string        `env:"SESSION_COOKIE_NAME" envDefault:"auth_token"`
	AuthMinDuration time.Duration `env:"AUTH_MIN_DURATION" envDefault:"500ms"`
	BcryptCost      int           `env:"BCRYPT_COST" envDefault:"10"`

	SignInMaxAttempts int           `env:"SIGNIN_MAX_ATTEMPTS" envDefault:"10"`
	SignInWindow      time.Duration `env:"SIGNIN_WINDOW" envDefault:"15m"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsProduction indica si las cookies deben marcarse Secure.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.AppEnv), "production")
}

// IsDevelopment habilita el detalle de errores internos en las respuestas.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(strings.TrimSpace(c.AppEnv), "development")
}
