package internal

import (
	"strings"
	"time"
)

type Config struct {
	Host           string   `env:"HOST,default=0.0.0.0"`
	Port           int      `env:"PORT,default=8080"`
	GrpcPort       int      `env:"GRPC_PORT,default=9090"`
	LogLevel       string   `env:"LOG_LEVEL,default=INFO"`
	JwtSecret      string   `env:"JWT_SECRET,required=true"`
	JwtIssuer      string   `env:"JWT_ISSUER"`
	AllowedOrigins string   `env:"ALLOWED_ORIGINS,default=*"`

	BufferSize           int `env:"BUFFER_SIZE,default=1024"`
	ConnectionBufferSize int `env:"CONNECTION_BUFFER_SIZE,default=64"`
	ArchiveBufferSize    int `env:"ARCHIVE_BUFFER_SIZE,default=1024"`

	DeliveryTimeout time.Duration `env:"DELIVERY_TIMEOUT,default=100ms"`
	DispatchTimeout time.Duration `env:"DISPATCH_TIMEOUT,default=5s"`
	RestartInterval time.Duration `env:"RESTART_INTERVAL,default=1s"`
	MetricInterval  time.Duration `env:"METRIC_INTERVAL,default=30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=15s"`

	MaxMessageSize    int           `env:"MAX_MESSAGE_SIZE,default=4096"`
	RateLimitBurst    int           `env:"RATE_LIMIT_BURST,default=20"`
	RateLimitInterval time.Duration `env:"RATE_LIMIT_INTERVAL,default=1s"`

	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	LimitMessages  *int   `env:"LIMIT_MESSAGES"`
}

// Origins splits the comma-separated ALLOWED_ORIGINS, dropping blanks.
func (c Config) Origins() []string {
	var res []string
	for _, origin := range strings.Split(c.AllowedOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			res = append(res, trimmed)
		}
	}
	return res
}
