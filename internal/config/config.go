package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Provider string

const (
	ProviderHTTP   Provider = "http"
	ProviderStream Provider = "stream"
	ProviderOpenAI Provider = "openai"
	ProviderVertex Provider = "vertex"
	ProviderMock   Provider = "mock"
)

type Config struct {
	Port     string
	LogLevel string

	AssistantName string
	CallSigns     []string

	// Classify enables the "don't interrupt chatter" gate on POST / and /ask.
	Classify bool

	Agent  AgentConfig
	OpenAI OpenAIConfig
	Vertex VertexConfig
	Rooms  RoomsConfig
}

type AgentConfig struct {
	Provider      Provider
	APIKey        string
	ID            string
	HTTPURL       string
	StreamURL     string
	Timeout       time.Duration
	SettleDelay   time.Duration
	RatePerSecond float64
	RateBurst     int
}

type OpenAIConfig struct {
	APIKey string
	Model  string
}

type VertexConfig struct {
	Project  string
	Location string
	Model    string
}

type RoomsConfig struct {
	Store      string // "memory", "redis" or "firestore"
	RedisAddr  string
	RedisTTL   time.Duration
	GCPProject string
}

// New returns a viper instance with every default set and env binding enabled.
func New() *viper.Viper {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	v.SetDefault("port", "8080")
	v.SetDefault("log_level", "info")

	v.SetDefault("assistant.name", "Atlas")
	v.SetDefault("assistant.call_signs", "hey instructor")
	v.SetDefault("relay.classify", false)

	v.SetDefault("agent.provider", string(ProviderHTTP))
	v.SetDefault("agent.api_key", "")
	v.SetDefault("agent.id", "training-assistant")
	v.SetDefault("agent.http_url", "https://api.elevenlabs.io/v1/convai/conversation")
	v.SetDefault("agent.stream_url", "wss://api.elevenlabs.io/v1/convai/conversation")
	v.SetDefault("agent.timeout", 15*time.Second)
	v.SetDefault("agent.settle_delay", 500*time.Millisecond)
	v.SetDefault("agent.rate_per_second", 5.0)
	v.SetDefault("agent.rate_burst", 10)

	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model", "gpt-4o-mini")

	v.SetDefault("vertex.project", "")
	v.SetDefault("vertex.location", "us-central1")
	v.SetDefault("vertex.model", "gemini-2.5-flash")

	v.SetDefault("rooms.store", "memory")
	v.SetDefault("rooms.redis_addr", "localhost:6379")
	v.SetDefault("rooms.redis_ttl", 24*time.Hour)
	v.SetDefault("rooms.gcp_project", "")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// env names that don't follow the key path
	_ = v.BindEnv("rooms.store", "ROOM_STORE")
	_ = v.BindEnv("rooms.redis_addr", "REDIS_ADDR")
	_ = v.BindEnv("rooms.redis_ttl", "ROOM_TTL")
	_ = v.BindEnv("rooms.gcp_project", "GCP_PROJECT")

	return v
}

// Load reads an optional .env file, then the environment, and builds the config.
func Load() (*Config, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	return FromViper(New())
}

// LoadDotEnv exports the variables in path into the process environment.
// A missing file is not an error; variables already set are left alone.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("config: stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: loading %s: %w", path, err)
	}
	return nil
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:     v.GetString("port"),
		LogLevel: v.GetString("log_level"),

		AssistantName: v.GetString("assistant.name"),
		CallSigns:     splitList(v.GetString("assistant.call_signs")),
		Classify:      v.GetBool("relay.classify"),

		Agent: AgentConfig{
			Provider:      Provider(strings.ToLower(v.GetString("agent.provider"))),
			APIKey:        strings.TrimSpace(v.GetString("agent.api_key")),
			ID:            v.GetString("agent.id"),
			HTTPURL:       v.GetString("agent.http_url"),
			StreamURL:     v.GetString("agent.stream_url"),
			Timeout:       v.GetDuration("agent.timeout"),
			SettleDelay:   v.GetDuration("agent.settle_delay"),
			RatePerSecond: v.GetFloat64("agent.rate_per_second"),
			RateBurst:     v.GetInt("agent.rate_burst"),
		},
		OpenAI: OpenAIConfig{
			APIKey: strings.TrimSpace(v.GetString("openai.api_key")),
			Model:  v.GetString("openai.model"),
		},
		Vertex: VertexConfig{
			Project:  v.GetString("vertex.project"),
			Location: v.GetString("vertex.location"),
			Model:    v.GetString("vertex.model"),
		},
		Rooms: RoomsConfig{
			Store:      strings.ToLower(v.GetString("rooms.store")),
			RedisAddr:  v.GetString("rooms.redis_addr"),
			RedisTTL:   v.GetDuration("rooms.redis_ttl"),
			GCPProject: v.GetString("rooms.gcp_project"),
		},
	}

	switch cfg.Agent.Provider {
	case ProviderHTTP, ProviderStream, ProviderOpenAI, ProviderVertex, ProviderMock:
	default:
		return nil, fmt.Errorf("config: unknown agent provider %q", cfg.Agent.Provider)
	}

	if cfg.Agent.Timeout <= 0 {
		cfg.Agent.Timeout = 15 * time.Second
	}
	if cfg.AssistantName == "" {
		cfg.AssistantName = "Atlas"
	}

	return cfg, nil
}

// AgentConfigured reports whether the selected provider has a usable credential.
// An unconfigured provider means the gateway answers locally without network I/O.
func (c *Config) AgentConfigured() bool {
	switch c.Agent.Provider {
	case ProviderMock:
		return true
	case ProviderOpenAI:
		return !IsPlaceholder(c.OpenAI.APIKey)
	case ProviderVertex:
		return c.Vertex.Project != ""
	default:
		return !IsPlaceholder(c.Agent.APIKey)
	}
}

var placeholders = map[string]bool{
	"your_api_key_here": true,
	"your-api-key":      true,
	"changeme":          true,
	"placeholder":       true,
	"xxx":               true,
}

// IsPlaceholder reports whether a credential is absent or an obvious template value.
func IsPlaceholder(key string) bool {
	k := strings.ToLower(strings.TrimSpace(key))
	if k == "" || placeholders[k] {
		return true
	}
	return strings.HasPrefix(k, "your_") || strings.HasPrefix(k, "your-")
}

func splitList(in string) []string {
	var out []string
	for _, part := range strings.Split(in, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
