// Package config provides the structures and loader for the service
// configuration.
package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the top-level configuration shared by all binaries.
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
	RabbitMQURL             string `yaml:"rabbitmq_url" env:"RABBITMQ_URL"`
	SweepCronSpec           string `yaml:"sweep_cron_spec" env:"SWEEP_CRON_SPEC" env-default:"0 2 * * *"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	SMTP                    `yaml:"smtp"`
	Mpesa                   `yaml:"mpesa"`
}

// HTTPServer holds the HTTP listener settings.
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"5s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection holds the redis client settings.
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis"`
	Password     string        `yaml:"password"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
}

// JWTToken holds the token signing settings.
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"24h"`
}

// SMTP holds the notification mail settings.
type SMTP struct {
	SMTPHost string `yaml:"smtp_host" env:"SMTP_HOST"`
	SMTPPort string `yaml:"smtp_port" env:"SMTP_PORT" env-default:"587"`
	SMTPUser string `yaml:"smtp_user" env:"SMTP_USER"`
	SMTPPass string `yaml:"smtp_pass" env:"SMTP_PASS"`
}

// Mpesa holds the Daraja gateway credentials and environment selection.
type Mpesa struct {
	ConsumerKey    string `yaml:"consumer_key" env:"MPESA_CONSUMER_KEY"`
	ConsumerSecret string `yaml:"consumer_secret" env:"MPESA_CONSUMER_SECRET"`
	ShortCode      string `yaml:"shortcode" env:"MPESA_SHORTCODE"`
	Passkey        string `yaml:"passkey" env:"MPESA_PASSKEY"`
	CallbackURL    string `yaml:"callback_url" env:"MPESA_CALLBACK_URL"`
	Environment    string `yaml:"environment" env:"MPESA_ENVIRONMENT" env-default:"sandbox"`
}

// MustLoad reads the configuration from the file named by CONFIG_PATH,
// with environment variable overrides, and exits on any failure.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}
