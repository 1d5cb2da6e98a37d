package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Environment string
	Port        string
	ServerURL   string

	StoreDriver string
	MongoURI    string
	MongoDB     string

	RedisAddr     string
	RedisPassword string
	CacheTTL      time.Duration

	JWTSecret          string
	ClerkWebhookSecret string

	StripeSecretKey     string
	StripeWebhookSecret string
	Currency            string
	MaxTicketsPerOrder  int

	GeminiAPIKey string
	GeminiModel  string

	SubEventPolicy string
	StatusSweep    bool
	UploadDir      string
}

const (
	DriverMongo  = "mongo"
	DriverMemory = "memory"

	PolicyCascade = "cascade"
	PolicyPromote = "promote"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("PORT", "4000")
	v.SetDefault("SERVER_URL", "http://localhost:3000")
	v.SetDefault("STORE_DRIVER", DriverMongo)
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DB", "eventtts")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("CACHE_TTL", "5m")
	v.SetDefault("CURRENCY", "inr")
	v.SetDefault("MAX_TICKETS_PER_ORDER", 10)
	v.SetDefault("GEMINI_MODEL", "gemini-1.5-flash")
	v.SetDefault("SUB_EVENT_POLICY", PolicyCascade)
	v.SetDefault("STATUS_SWEEP", true)
	v.SetDefault("UPLOAD_DIR", "./static/uploads")
}

// Load reads configuration from the environment, after merging an optional
// .env file. Missing .env is not an error.
func Load(envFiles ...string) (*Config, error) {
	_ = godotenv.Load(envFiles...)

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	conf := &Config{
		Environment:         v.GetString("ENVIRONMENT"),
		Port:                v.GetString("PORT"),
		ServerURL:           strings.TrimRight(v.GetString("SERVER_URL"), "/"),
		StoreDriver:         strings.ToLower(v.GetString("STORE_DRIVER")),
		MongoURI:            v.GetString("MONGO_URI"),
		MongoDB:             v.GetString("MONGO_DB"),
		RedisAddr:           v.GetString("REDIS_ADDR"),
		RedisPassword:       v.GetString("REDIS_PASSWORD"),
		CacheTTL:            v.GetDuration("CACHE_TTL"),
		JWTSecret:           v.GetString("JWT_SECRET"),
		ClerkWebhookSecret:  v.GetString("CLERK_WEBHOOK_SECRET"),
		StripeSecretKey:     v.GetString("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: v.GetString("STRIPE_WEBHOOK_SECRET"),
		Currency:            strings.ToLower(v.GetString("CURRENCY")),
		MaxTicketsPerOrder:  v.GetInt("MAX_TICKETS_PER_ORDER"),
		GeminiAPIKey:        v.GetString("GEMINI_API_KEY"),
		GeminiModel:         v.GetString("GEMINI_MODEL"),
		SubEventPolicy:      strings.ToLower(v.GetString("SUB_EVENT_POLICY")),
		StatusSweep:         v.GetBool("STATUS_SWEEP"),
		UploadDir:           v.GetString("UPLOAD_DIR"),
	}
	return conf, conf.validate()
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case DriverMongo, DriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	switch c.SubEventPolicy {
	case PolicyCascade, PolicyPromote:
	default:
		return fmt.Errorf("unknown SUB_EVENT_POLICY %q", c.SubEventPolicy)
	}
	if c.MaxTicketsPerOrder < 1 {
		return fmt.Errorf("MAX_TICKETS_PER_ORDER must be positive, got %d", c.MaxTicketsPerOrder)
	}
	if c.JWTSecret == "" && c.IsProduction() {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
