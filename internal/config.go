package internal

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Host     string `env:"HOST,default=0.0.0.0"`
	Port     int    `env:"PORT,default=8000"`
	LogLevel string `env:"LOG_LEVEL,default=INFO"`

	BadgerFilepath string        `env:"BADGER_FILEPATH,required=true"`
	GCInterval     time.Duration `env:"GC_INTERVAL,default=10m"`
	DebugPort      int           `env:"DEBUG_PORT,default=8081"`

	AuthTokenSecret   string        `env:"AUTH_TOKEN_SECRET,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=30m"`
	LimitUsers        int           `env:"LIMIT_USERS,default=100"`

	AllowedOrigins   string        `env:"ALLOWED_ORIGINS,default=http://localhost:4200"`
	MaxContentLength int           `env:"MAX_CONTENT_LENGTH,default=4096"`
	ReadLimit        int           `env:"READ_LIMIT,default=65536"`
	SendTimeout      time.Duration `env:"SEND_TIMEOUT,default=5s"`
	ShutdownTimeout  time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
	RestartInterval  time.Duration `env:"RESTART_INTERVAL,default=1s"`

	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB,default=0"`
	PresenceTTL   time.Duration `env:"PRESENCE_TTL,default=1m"`

	CensoredWords   string `env:"CENSORED_WORDS"`
	CharReplacement string `env:"CHARACTER_REPLACEMENT,default=*"`
}

func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Origins returns the comma separated allow-list. "*" allows every origin.
func (c Config) Origins() []string {
	return splitList(c.AllowedOrigins)
}

// Words returns the censored words, moderation is disabled when empty.
func (c Config) Words() []string {
	return splitList(c.CensoredWords)
}

// Validate checks the values go-env cannot express with tags.
func (c Config) Validate() error {
	if len(c.AuthTokenSecret) < 16 {
		return fmt.Errorf("AUTH_TOKEN_SECRET must be at least 16 bytes long")
	}
	if c.AuthTokenDuration <= 0 {
		return fmt.Errorf("AUTH_TOKEN_DURATION must be positive, got %s", c.AuthTokenDuration)
	}
	if c.MaxContentLength <= 0 {
		return fmt.Errorf("MAX_CONTENT_LENGTH must be positive, got %d", c.MaxContentLength)
	}
	if c.ReadLimit < c.MaxContentLength {
		return fmt.Errorf("READ_LIMIT (%d) must be at least MAX_CONTENT_LENGTH (%d)", c.ReadLimit, c.MaxContentLength)
	}
	if c.RedisAddr != "" && c.PresenceTTL <= 0 {
		return fmt.Errorf("PRESENCE_TTL must be positive when REDIS_ADDR is set")
	}
	return nil
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
