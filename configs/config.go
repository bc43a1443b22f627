package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Env           string        `envconfig:"APP_ENV" default:"development"`
	HTTPAddr      string        `envconfig:"HTTP_ADDR" default:":8080"`
	PublicBaseURL string        `envconfig:"PUBLIC_BASE_URL" default:"http://localhost:8080"`
	DatabaseURL   string        `envconfig:"DATABASE_URL" required:"true"`
	JWTSecret     string        `envconfig:"JWT_SECRET" required:"true"`
	JWTTTL        time.Duration `envconfig:"JWT_TTL" default:"72h"`
	Currency      string        `envconfig:"CURRENCY" default:"ZAR"`

	Admin      AdminConfig      `envconfig:"ADMIN"`
	PayFast    PayFastConfig    `envconfig:"PAYFAST"`
	Email      EmailConfig      `envconfig:"EMAIL"`
	RabbitMQ   RabbitMQConfig   `envconfig:"RABBITMQ"`
	Redis      RedisConfig      `envconfig:"REDIS"`
	Cloudinary CloudinaryConfig `envconfig:"CLOUDINARY"`
	Jobs       JobsConfig       `envconfig:"JOBS"`
	Retry      RetryConfig      `envconfig:"TX_RETRY"`
}

type AdminConfig struct {
	Email    string `envconfig:"EMAIL"`
	Password string `envconfig:"PASSWORD"`
	FullName string `envconfig:"FULL_NAME" default:"Academy Admin"`
}

type PayFastConfig struct {
	Sandbox         bool          `envconfig:"SANDBOX" default:"true"`
	MerchantID      string        `envconfig:"MERCHANT_ID"`
	MerchantKey     string        `envconfig:"MERCHANT_KEY"`
	Passphrase      string        `envconfig:"PASSPHRASE"`
	ReturnURL       string        `envconfig:"RETURN_URL"`
	CancelURL       string        `envconfig:"CANCEL_URL"`
	NotifyURL       string        `envconfig:"NOTIFY_URL"`
	ValidateTimeout time.Duration `envconfig:"VALIDATE_TIMEOUT" default:"10s"`
	// Overrides the validate endpoint derived from Sandbox.
	ValidateURL string `envconfig:"VALIDATE_URL"`
}

type EmailConfig struct {
	BrevoAPIKey string        `envconfig:"BREVO_API_KEY"`
	SenderEmail string        `envconfig:"SENDER"`
	SenderName  string        `envconfig:"SENDER_NAME"`
	Timeout     time.Duration `envconfig:"TIMEOUT" default:"10s"`
}

type RabbitMQConfig struct {
	URL      string `envconfig:"URL"`
	Exchange string `envconfig:"EXCHANGE" default:"academy.events"`
}

type RedisConfig struct {
	Addr           string        `envconfig:"ADDR"`
	Password       string        `envconfig:"PASSWORD"`
	DB             int           `envconfig:"DB" default:"0"`
	Capacity       int           `envconfig:"RL_CAPACITY" default:"20"`
	RefillTokens   int           `envconfig:"RL_REFILL_TOKENS" default:"5"`
	RefillInterval time.Duration `envconfig:"RL_REFILL_INTERVAL" default:"1s"`
	TTL            time.Duration `envconfig:"RL_TTL" default:"10m"`
	Prefix         string        `envconfig:"RL_PREFIX" default:"academy:rl"`
}

type CloudinaryConfig struct {
	URL    string `envconfig:"URL"`
	Folder string `envconfig:"FOLDER" default:"academy_sessions"`
}

type JobsConfig struct {
	SweepInterval    time.Duration `envconfig:"SWEEP_INTERVAL" default:"5m"`
	SweepSafety      time.Duration `envconfig:"SWEEP_SAFETY" default:"2m"`
	ReminderInterval time.Duration `envconfig:"REMINDER_INTERVAL" default:"15m"`
	CompleteInterval time.Duration `envconfig:"COMPLETE_INTERVAL" default:"5m"`
}

type RetryConfig struct {
	Attempts uint          `envconfig:"ATTEMPTS" default:"5"`
	Delay    time.Duration `envconfig:"DELAY" default:"20ms"`
	MaxDelay time.Duration `envconfig:"MAX_DELAY" default:"500ms"`
}

func Load() (Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("Warning: .env file not found, reading from system environment variables")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}
