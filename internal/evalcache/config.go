package evalcache

import (
	"encoding/json"
	"fmt"
	"os"
)

// Capacity bounds. Sizes are entry counts, not bytes.
const (
	MinCacheSize = 1024
	MaxCacheSize = 128 * 1024 * 1024
)

// Config describes one cache tier. Size is fixed for the cache's
// lifetime; changing it means constructing a new cache and swapping the
// reference. The other fields may be toggled at runtime.
type Config struct {
	Size               int               `json:"size"`
	ReplacementPolicy  ReplacementPolicy `json:"replacement_policy"`
	EnableStatistics   bool              `json:"enable_statistics"`
	EnableVerification bool              `json:"enable_verification"`
}

// DefaultConfig returns a 1M-entry depth-preferred cache with
// statistics and collision verification enabled.
func DefaultConfig() Config {
	return Config{
		Size:               1 << 20,
		ReplacementPolicy:  DepthPreferred,
		EnableStatistics:   true,
		EnableVerification: true,
	}
}

// Validate rejects invalid configurations with a descriptive error.
// There is no silent clamping.
func (c Config) Validate() error {
	if err := validateSize(c.Size); err != nil {
		return err
	}
	if _, ok := policyNames[c.ReplacementPolicy]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownPolicy, uint8(c.ReplacementPolicy))
	}
	return nil
}

func validateSize(size int) error {
	if size < MinCacheSize || size > MaxCacheSize {
		return fmt.Errorf("%w: %d not in [%d, %d]",
			ErrSizeOutOfRange, size, MinCacheSize, MaxCacheSize)
	}
	if size&(size-1) != 0 {
		return fmt.Errorf("%w: %d", ErrSizeNotPowerOfTwo, size)
	}
	return nil
}

// LoadConfig reads and validates a cache configuration from a JSON
// document on disk. Malformed documents and out-of-range values are
// rejected, never coerced.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read cache config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse cache config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate cache config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration as an indented JSON document.
func (c Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

// MultiLevelConfig describes a two-tier cache: a small fast L1 in front
// of a larger L2, with threshold-based promotion between them.
type MultiLevelConfig struct {
	L1Size             int               `json:"l1_size"`
	L2Size             int               `json:"l2_size"`
	L1Policy           ReplacementPolicy `json:"l1_replacement_policy"`
	L2Policy           ReplacementPolicy `json:"l2_replacement_policy"`
	PromotionThreshold int               `json:"promotion_threshold"`
	EnableStatistics   bool              `json:"enable_statistics"`
	EnableVerification bool              `json:"enable_verification"`
}

// DefaultMultiLevelConfig returns a 64K-entry L1 over a 4M-entry L2
// with promotion after three L2 hits.
func DefaultMultiLevelConfig() MultiLevelConfig {
	return MultiLevelConfig{
		L1Size:             1 << 16,
		L2Size:             1 << 22,
		L1Policy:           AlwaysReplace,
		L2Policy:           DepthPreferred,
		PromotionThreshold: 3,
		EnableStatistics:   true,
		EnableVerification: true,
	}
}

// Validate checks both tier sizes and the promotion threshold.
func (c MultiLevelConfig) Validate() error {
	if err := validateSize(c.L1Size); err != nil {
		return fmt.Errorf("l1_size: %w", err)
	}
	if err := validateSize(c.L2Size); err != nil {
		return fmt.Errorf("l2_size: %w", err)
	}
	if _, ok := policyNames[c.L1Policy]; !ok {
		return fmt.Errorf("l1_replacement_policy: %w: %d", ErrUnknownPolicy, uint8(c.L1Policy))
	}
	if _, ok := policyNames[c.L2Policy]; !ok {
		return fmt.Errorf("l2_replacement_policy: %w: %d", ErrUnknownPolicy, uint8(c.L2Policy))
	}
	if c.PromotionThreshold <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidPromotionThreshold, c.PromotionThreshold)
	}
	return nil
}

// LoadMultiLevelConfig reads and validates a two-tier configuration
// from a JSON document on disk.
func LoadMultiLevelConfig(path string) (MultiLevelConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return MultiLevelConfig{}, fmt.Errorf("read multi-level config: %w", err)
	}
	var cfg MultiLevelConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return MultiLevelConfig{}, fmt.Errorf("parse multi-level config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return MultiLevelConfig{}, fmt.Errorf("validate multi-level config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration as an indented JSON document.
func (c MultiLevelConfig) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}
