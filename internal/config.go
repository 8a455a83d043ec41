package internal

import (
	"chat-relay/runtime"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strconv"
	"time"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Host               string        `env:"HOST"`
	Port               int           `env:"PORT,default=3000" validate:"min=1,max=65535"`
	GRPCHealthPort     int           `env:"GRPC_HEALTH_PORT,default=3001" validate:"min=1,max=65535,nefield=Port"`
	LogLevel           string        `env:"LOG_LEVEL,default=INFO" validate:"required"`
	BadgerFilepath     string        `env:"BADGER_FILEPATH,default=./data/messages" validate:"required"`
	LimitMessages      *int          `env:"LIMIT_MESSAGES" validate:"omitempty,min=1"`
	PersistTimeout     time.Duration `env:"PERSIST_TIMEOUT,default=5s" validate:"gt=0"`
	DeliveryTimeout    time.Duration `env:"DELIVERY_TIMEOUT,default=2s" validate:"gt=0"`
	MaxMessageLength   int           `env:"MAX_MESSAGE_LENGTH,default=4096" validate:"min=0"`
	MaxFrameBytes      int64         `env:"MAX_FRAME_BYTES,default=65536" validate:"min=0"`
	NormalizeRecipient bool          `env:"NORMALIZE_RECIPIENT,default=false"`
	FailurePolicy      string        `env:"FAILURE_POLICY,default=abort"`
	RestartInterval    time.Duration `env:"RESTART_INTERVAL,default=200ms" validate:"gt=0"`
	StatsInterval      time.Duration `env:"STATS_INTERVAL,default=30s" validate:"gt=0"`
	GCInterval         time.Duration `env:"GC_INTERVAL,default=5m" validate:"gt=0"`
	Greeting           string        `env:"GREETING,default=Bienvenido al chat de meet2go!"`
	AllowedOrigin      string        `env:"ALLOWED_ORIGIN,default=*"`
}

// LoadConfig reads an optional .env file, then the process environment.
// Variables already set in the environment win over the file.
func LoadConfig(dotenvFiles ...string) (Config, error) {
	if err := godotenv.Load(dotenvFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("dotenv: %w", err)
	}
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, err
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	_, err := runtime.ParseFailurePolicy(c.FailurePolicy)
	return err
}

func (c Config) HTTPAddress() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c Config) HealthAddress() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.GRPCHealthPort))
}

func (c Config) RelayConfig() runtime.RelayConfig {
	policy, _ := runtime.ParseFailurePolicy(c.FailurePolicy)
	return runtime.RelayConfig{
		PersistTimeout:     c.PersistTimeout,
		DeliveryTimeout:    c.DeliveryTimeout,
		MaxMessageLength:   c.MaxMessageLength,
		NormalizeRecipient: c.NormalizeRecipient,
		FailurePolicy:      policy,
	}
}
