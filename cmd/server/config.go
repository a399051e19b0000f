package main

import (
	"chat-relay/infrastructure/ws"
	"strings"
	"time"
)

type Config struct {
	Host                 string        `env:"HOST,default=localhost"`
	Port                 int           `env:"PORT,default=8080"`
	GrpcPort             int           `env:"GRPC_PORT,default=9090"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH,required=true"`
	UploadDir            string        `env:"UPLOAD_DIR,default=uploads"`
	MaxUploadBytes       int64         `env:"MAX_UPLOAD_BYTES,default=52428800"`
	LogLevel             string        `env:"LOG_LEVEL,required=true"`
	JwtSecret            string        `env:"JWT_SECRET,required=true"`
	JwtIssuer            string        `env:"JWT_ISSUER,default=chat-relay"`
	JwtTTL               time.Duration `env:"JWT_TTL,default=24h"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64"`
	SinkTimeout          time.Duration `env:"SINK_TIMEOUT,default=2s"`
	WriteTimeout         time.Duration `env:"WRITE_TIMEOUT,default=10s"`
	PongTimeout          time.Duration `env:"PONG_TIMEOUT,default=60s"`
	MaxFrameBytes        int64         `env:"MAX_FRAME_BYTES,default=65536"`
	RateLimitRPS         float64       `env:"RATE_LIMIT_RPS,default=10"`
	RateLimitBurst       int           `env:"RATE_LIMIT_BURST,default=20"`
	AllowedOrigins       string        `env:"ALLOWED_ORIGINS,required=true"`
	LimitMessages        *int          `env:"LIMIT_MESSAGES"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=1s"`
	GcInterval           time.Duration `env:"GC_INTERVAL,default=10m"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=15s"`
	ShutdownTimeout      time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
}

// Origins splits the comma separated ALLOWED_ORIGINS value.
func (c Config) Origins() []string {
	var origins []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func (c Config) realtime() ws.Config {
	return ws.Config{
		SendBufferSize: c.ConnectionBufferSize,
		WriteTimeout:   c.WriteTimeout,
		PongTimeout:    c.PongTimeout,
		MaxFrameBytes:  c.MaxFrameBytes,
		RateLimitRPS:   c.RateLimitRPS,
		RateLimitBurst: c.RateLimitBurst,
		AllowedOrigins: c.Origins(),
	}
}
