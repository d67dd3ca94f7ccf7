package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port           int      `yaml:"port"`
		CORSOrigins    []string `yaml:"corsOrigins"`
		MaxUploadMB    int      `yaml:"maxUploadMB"`
		ReadTimeoutSec int      `yaml:"readTimeoutSeconds"`
	} `yaml:"server"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Database struct {
		Driver   string `yaml:"driver"` // mysql, postgres, memory
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
	} `yaml:"database"`

	Storage struct {
		Driver    string `yaml:"driver"` // minio, local
		LocalRoot string `yaml:"localRoot"`
	} `yaml:"storage"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	AI struct {
		APIKey         string `yaml:"apiKey"`
		Model          string `yaml:"model"`
		BaseURL        string `yaml:"baseURL"`
		TimeoutSeconds int    `yaml:"timeoutSeconds"`
	} `yaml:"ai"`

	SMTP struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		From     string `yaml:"from"`
	} `yaml:"smtp"`

	Auth struct {
		JWTSecret     string `yaml:"jwtSecret"`
		TokenTTLHours int    `yaml:"tokenTTLHours"`
	} `yaml:"auth"`

	RateLimit struct {
		Capacity   int `yaml:"capacity"`
		RefillRate int `yaml:"refillRate"`
	} `yaml:"rateLimit"`

	Report struct {
		Compress bool `yaml:"compress"`
	} `yaml:"report"`
}

// Default returns a config that runs locally with no external services
// except the AI provider.
func Default() *Config {
	var c Config
	c.Server.Port = 5000
	c.Server.MaxUploadMB = 10
	c.Server.ReadTimeoutSec = 30
	c.Log.Level = "info"
	c.Database.Driver = "memory"
	c.Database.Host = "localhost"
	c.Database.Port = 3306
	c.Database.Name = "brainscan"
	c.Database.SSLMode = "disable"
	c.Storage.Driver = "local"
	c.Storage.LocalRoot = "data/blobs"
	c.Minio.BucketName = "brainscan"
	c.Minio.Region = "us-east-1"
	c.AI.Model = "gpt-4o"
	c.AI.TimeoutSeconds = 60
	c.SMTP.Port = 587
	c.SMTP.From = "BrainScan <noreply@brainscan.local>"
	c.Auth.TokenTTLHours = 24
	c.RateLimit.Capacity = 30
	c.RateLimit.RefillRate = 1
	return &c
}

// Load baca file config.yaml di atas default. A missing file means defaults;
// secrets can always come from the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	cfg.applyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	set := func(dst *string, key string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set(&c.Database.Password, "DB_PASSWORD")
	set(&c.AI.APIKey, "AI_API_KEY")
	set(&c.Auth.JWTSecret, "JWT_SECRET")
	set(&c.SMTP.Password, "SMTP_PASSWORD")
	set(&c.Minio.SecretKey, "MINIO_SECRET_KEY")
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case "mysql", "postgres", "memory":
	default:
		errs = append(errs, fmt.Errorf("database.driver %q: want mysql, postgres or memory", c.Database.Driver))
	}
	switch c.Storage.Driver {
	case "minio":
		if c.Minio.Endpoint == "" || c.Minio.BucketName == "" {
			errs = append(errs, errors.New("minio.endpoint and minio.bucketName are required for minio storage"))
		}
	case "local":
		if strings.TrimSpace(c.Storage.LocalRoot) == "" {
			errs = append(errs, errors.New("storage.localRoot is required for local storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q: want minio or local", c.Storage.Driver))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	return errors.Join(errs...)
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// PostgresDSN builds a lib/pq connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func (c *Config) AnalysisTimeout() time.Duration {
	return time.Duration(c.AI.TimeoutSeconds) * time.Second
}

func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.Auth.TokenTTLHours) * time.Hour
}

func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Server.MaxUploadMB) << 20
}

// SMTPEnabled reports whether emails are actually sent.
func (c *Config) SMTPEnabled() bool {
	return c.SMTP.Host != ""
}
