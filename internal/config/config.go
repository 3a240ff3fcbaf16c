package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env"
	"github.com/joho/godotenv"
)

// Configuration holds everything the server reads from the environment.
type Configuration struct {
	Address             string `env:"ADDRESS" envDefault:":8080"`
	GinMode             string `env:"GIN_MODE" envDefault:"release"`
	JwtSecret           string `env:"JWT_SECRET,required"`
	JwtExpiryHours      int    `env:"JWT_EXPIRY_HOURS" envDefault:"168"`
	AdminJwtExpiryHours int    `env:"ADMIN_JWT_EXPIRY_HOURS" envDefault:"24"`

	StoreDriver      string `env:"STORE_DRIVER" envDefault:"mongo"` // mongo | memory
	MongoURL         string `env:"MONGO_URL" envDefault:"mongodb://localhost:27017"`
	MongoDB          string `env:"MONGO_DB" envDefault:"crackers"`
	MongoMaxPoolSize int    `env:"MONGO_MAX_POOL_SIZE" envDefault:"50"`

	CORSOrigins      string `env:"CORS_ORIGINS" envDefault:"*"`
	RateLimitEnabled bool   `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitMax     int    `env:"RATE_LIMIT_MAX" envDefault:"100"`
	RateLimitWindow  int    `env:"RATE_LIMIT_WINDOW" envDefault:"60"` // seconds

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	MailFrom     string `env:"MAIL_FROM" envDefault:"Crackers Store <no-reply@localhost>"`

	UploadDir     string `env:"UPLOAD_DIR" envDefault:"./uploads"`
	CloudinaryURL string `env:"CLOUDINARY_URL"`
	MaxUploadMB   int    `env:"MAX_UPLOAD_MB" envDefault:"5"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`
	FrontendURL   string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`

	SeedAdminEmail    string `env:"SEED_ADMIN_EMAIL"`
	SeedAdminPassword string `env:"SEED_ADMIN_PASSWORD"`
}

// Load reads the .env file (ENV_FILE overrides the path) when present and parses the environment.
func Load() (*Configuration, error) {
	path := os.Getenv("ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err == nil {
		if err := godotenv.Load(path); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	cfg := Configuration{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.StoreDriver != "mongo" && cfg.StoreDriver != "memory" {
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
	return &cfg, nil
}

func (c *Configuration) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
