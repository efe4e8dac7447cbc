package core

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

const (
	DEFAULT_GRACE_PERIOD         uint64 = 2
	DEFAULT_MAX_DESCRIPTOR_SETS  uint32 = 1000
	DEFAULT_RENDERPASS_CAPACITY  int    = 64
	DEFAULT_FRAMEBUFFER_CAPACITY int    = 128
	DEFAULT_LOG_LEVEL            string = "info"
)

// BinderConfig sizes the pipeline/descriptor binder.
type BinderConfig struct {
	// GracePeriod is the number of frames an unbound object is kept alive.
	// It must exceed the number of frames the swapchain keeps in flight.
	GracePeriod uint64 `toml:"grace_period"`
	// MaxDescriptorSets is the hard ceiling of the descriptor pool, counted in
	// descriptor-set pairs.
	MaxDescriptorSets uint32 `toml:"max_descriptor_sets"`
}

type CacheConfig struct {
	RenderPassCapacity  int `toml:"renderpass_capacity"`
	FramebufferCapacity int `toml:"framebuffer_capacity"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type Config struct {
	Binder BinderConfig `toml:"binder"`
	Cache  CacheConfig  `toml:"cache"`
	Log    LogConfig    `toml:"log"`
}

func DefaultConfig() Config {
	return Config{
		Binder: BinderConfig{
			GracePeriod:       DEFAULT_GRACE_PERIOD,
			MaxDescriptorSets: DEFAULT_MAX_DESCRIPTOR_SETS,
		},
		Cache: CacheConfig{
			RenderPassCapacity:  DEFAULT_RENDERPASS_CAPACITY,
			FramebufferCapacity: DEFAULT_FRAMEBUFFER_CAPACITY,
		},
		Log: LogConfig{
			Level: DEFAULT_LOG_LEVEL,
		},
	}
}

// ParseConfig decodes TOML on top of DefaultConfig, so missing keys keep their
// default value, and validates the result.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return ParseConfig(data)
}

func (c Config) Validate() error {
	if c.Binder.GracePeriod == 0 {
		return fmt.Errorf("%w: binder.grace_period must be at least 1", ErrInvalidConfig)
	}
	if c.Binder.MaxDescriptorSets == 0 {
		return fmt.Errorf("%w: binder.max_descriptor_sets must be at least 1", ErrInvalidConfig)
	}
	if c.Cache.RenderPassCapacity < 0 {
		return fmt.Errorf("%w: cache.renderpass_capacity cannot be negative", ErrInvalidConfig)
	}
	if c.Cache.FramebufferCapacity < 0 {
		return fmt.Errorf("%w: cache.framebuffer_capacity cannot be negative", ErrInvalidConfig)
	}
	if _, err := parseLogLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// ApplyLogConfig pushes the log section into the process-wide logger.
func ApplyLogConfig(c LogConfig) error {
	return SetLogLevel(c.Level)
}
