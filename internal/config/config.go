package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config represents the application configuration structure.
// It contains settings for the benchmark itself, the download engine, the
// HTTP server, the database, the run workers and graceful shutdown behavior.
type Config struct {
	// Environment specifies the current running environment (development, production, etc.)
	Environment string `env:"ENVIRONMENT" env-default:"development" yaml:"environment"`
	// LogLevel overrides the environment's default log level (debug, info, warn, error)
	LogLevel string `env:"LOG_LEVEL" yaml:"logLevel"`

	// Benchmark describes the batch the CLI downloads
	Benchmark struct {
		// URL is downloaded Count times per run
		URL string `env:"BENCHMARK_URL" env-default:"https://jsonplaceholder.typicode.com/todos/1" yaml:"url"`
		// Count is the number of copies of URL in the batch
		Count int `env:"BENCHMARK_COUNT" env-default:"50" yaml:"count"`
		// ResultsDir is where the harness writes its results files
		ResultsDir string `env:"BENCHMARK_RESULTS_DIR" env-default:"results" yaml:"resultsDir"`
		// Repeat is the default number of measured runs of the bench command
		Repeat int `env:"BENCHMARK_REPEAT" env-default:"1" yaml:"repeat"`
	} `yaml:"benchmark"`

	// Download configures the fetch client and the download strategies
	Download struct {
		// Timeout bounds a whole request, body included. Zero disables it
		Timeout time.Duration `env:"DOWNLOAD_TIMEOUT" env-default:"30s" yaml:"timeout"`
		// InactivityTimeout aborts a request when no data arrives for this long. Zero disables it
		InactivityTimeout time.Duration `env:"DOWNLOAD_INACTIVITY_TIMEOUT" env-default:"10s" yaml:"inactivityTimeout"`
		// ChunkSize is the number of bytes requested per body read
		ChunkSize int `env:"DOWNLOAD_CHUNK_SIZE" env-default:"1024" yaml:"chunkSize"`
		// Concurrency bounds simultaneous fetches of the asynchronous mode. Zero means unbounded
		Concurrency int `env:"DOWNLOAD_CONCURRENCY" env-default:"0" yaml:"concurrency"`
		// MaxConnsPerHost limits connections to a single host
		MaxConnsPerHost int `env:"DOWNLOAD_MAX_CONNS_PER_HOST" env-default:"100" yaml:"maxConnsPerHost"`
		// RespectRateLimit throttles fetches against X-Ratelimit-* response headers
		RespectRateLimit bool `env:"DOWNLOAD_RESPECT_RATE_LIMIT" env-default:"false" yaml:"respectRateLimit"`
		// UserAgent is sent with every request
		UserAgent string `env:"DOWNLOAD_USER_AGENT" env-default:"dlbench/1.0" yaml:"userAgent"`
	} `yaml:"download"`

	// HTTP contains all HTTP server related configurations
	HTTP struct {
		// Addr is the address and port the HTTP server will listen on
		Addr string `env:"HTTP_ADDR" env-default:":8080" yaml:"addr"`
		// ReadTimeout is the maximum duration for reading the entire request, including the body
		ReadTimeout time.Duration `env:"HTTP_READ_TIMEOUT" env-default:"1m" yaml:"readTimeout"`
		// ReadHeaderTimeout is the amount of time allowed to read request headers
		ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" env-default:"10s" yaml:"readHeaderTimeout"`
		// WriteTimeout is the maximum duration before timing out writes of the response
		WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" env-default:"2m" yaml:"writeTimeout"`
		// IdleTimeout is the maximum amount of time to wait for the next request when keep-alives are enabled
		IdleTimeout time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"2m" yaml:"idleTimeout"`
		// RequestTimeout is the maximum time allowed for processing a single request
		RequestTimeout time.Duration `env:"HTTP_REQUEST_TIMEOUT" env-default:"10s" yaml:"requestTimeout"`
		// MaxHeaderBytes controls the maximum number of bytes the server will read parsing the request header
		MaxHeaderBytes int `env:"HTTP_MAX_HEADER_BYTES" env-default:"0" yaml:"maxHeaderBytes"`
		// MetricsPath defines the URL path where metrics are exposed
		MetricsPath string `env:"HTTP_METRICS_PATH" env-default:"/metrics" yaml:"metricsPath"`
		// CORSOrigins lists the browser origins allowed to call the API; empty allows any
		CORSOrigins []string `env:"HTTP_CORS_ORIGINS" env-separator:"," yaml:"corsOrigins"`
	} `yaml:"http"`

	// Database contains all database connection related configurations
	Database struct {
		Username string `env:"DATABASE_USERNAME" env-default:"myuser" yaml:"username"`
		Password string `env:"DATABASE_PASSWORD" env-default:"mypassword" yaml:"password"`
		Host     string `env:"DATABASE_HOST" env-default:"localhost" yaml:"host"`
		Port     int    `env:"DATABASE_PORT" env-default:"5432" yaml:"port"`
		// SslMode defines the SSL mode for the database connection
		SslMode      string `env:"DATABASE_SSL_MODE" env-default:"disable" yaml:"sslMode"`
		DatabaseName string `env:"DATABASE_NAME" env-default:"dlbench" yaml:"name"`
		// MaxOpenConnections limits the number of open connections to the database
		MaxOpenConnections int `env:"DATABASE_MAX_OPEN_CONNECTIONS" env-default:"10" yaml:"maxOpenConnections"`
		// MaxIdleConnections limits the number of connections in the idle connection pool
		MaxIdleConnections int `env:"DATABASE_MAX_IDLE_CONNECTIONS" env-default:"8" yaml:"maxIdleConnections"`
		// ConnMaxLifetime is the maximum amount of time a connection may be reused
		ConnMaxLifetime time.Duration `env:"DATABASE_CONNECTION_MAX_LIFETIME" env-default:"3m" yaml:"connMaxLifetime"`
		// ConnMaxIdleTime is the maximum amount of time a connection may be idle
		ConnMaxIdleTime time.Duration `env:"DATABASE_CONNECTION_MAX_IDLE_TIME" env-default:"3m" yaml:"connMaxIdleTime"`
	} `yaml:"database"`

	// JWT holds the RS256 key pair used to sign and verify API tokens
	JWT struct {
		// PublicKey is the PEM encoded RSA public key
		PublicKey string `env:"JWT_PUBLIC_KEY" yaml:"publicKey"`
		// PrivateKey is the PEM encoded RSA private key, only needed to issue tokens
		PrivateKey string `env:"JWT_PRIVATE_KEY" yaml:"privateKey"`
	} `yaml:"jwt"`

	// Worker configures the queued benchmark runs
	Worker struct {
		// MaxWorkers is the number of runs executed concurrently
		MaxWorkers int `env:"WORKER_MAX_WORKERS" env-default:"4" yaml:"maxWorkers"`
		// MaxAttempts is how many times a run is tried before it is marked FAILED
		MaxAttempts uint `env:"WORKER_MAX_ATTEMPTS" env-default:"3" yaml:"maxAttempts"`
		// MaxCount caps the batch size a user may request
		MaxCount int `env:"WORKER_MAX_COUNT" env-default:"500" yaml:"maxCount"`
	} `yaml:"worker"`

	// GracefulShutdownTimeout is the maximum duration to wait for ongoing requests to complete during shutdown
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_TIMEOUT" env-default:"10s" yaml:"gracefulShutdownTimeout"` //nolint: lll
}

// Load receives the path for yaml config file and returns a filled Config struct.
// When the file does not exist, the configuration is read from the environment
// and defaults only.
func Load(configPath string) (*Config, error) {
	var cfg Config

	_, err := os.Stat(configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		err = cleanenv.ReadEnv(&cfg)
	case err != nil:
		return nil, fmt.Errorf("could not stat config: %w", err)
	default:
		err = cleanenv.ReadConfig(configPath, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("could not read config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Benchmark.Count < 1 {
		return fmt.Errorf("benchmark.count must be at least 1, got %d", c.Benchmark.Count)
	}
	if c.Benchmark.Repeat < 1 {
		return fmt.Errorf("benchmark.repeat must be at least 1, got %d", c.Benchmark.Repeat)
	}
	if c.Download.ChunkSize < 1 {
		return fmt.Errorf("download.chunkSize must be at least 1, got %d", c.Download.ChunkSize)
	}
	if c.Download.Concurrency < 0 {
		return fmt.Errorf("download.concurrency must not be negative, got %d", c.Download.Concurrency)
	}

	return nil
}
