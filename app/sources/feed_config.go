package sources

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type FeedConfig struct {
	Name     string       `yaml:"-" validate:"required"` // derived from filename
	URL      string       `yaml:"url" validate:"required,url"`
	Company  string       `yaml:"company"`
	Settings FeedSettings `yaml:"settings"`
}

type FeedSettings struct {
	Enabled        bool `yaml:"enabled"`
	Timeout        int  `yaml:"timeout" validate:"gte=0"`   // seconds
	MaxItems       int  `yaml:"max_items" validate:"gte=0"` // 0 keeps every item
	ExtractContent bool `yaml:"extract_content"`            // fetch each item's page for full text
}

// ConfigCache holds the feed configurations found in a directory of
// <name>.yml files. Run reloads them from disk.
type ConfigCache struct {
	feedsDir string
	cache    map[string]*FeedConfig
	validate *validator.Validate
	mu       sync.RWMutex
}

func NewConfigCache(feedsDir string) *ConfigCache {
	return &ConfigCache{
		feedsDir: feedsDir,
		cache:    make(map[string]*FeedConfig),
		validate: validator.New(),
	}
}

// Run loads every configuration file. A missing directory means no feeds.
func (cc *ConfigCache) Run() error {
	if cc.feedsDir == "" {
		return nil
	}
	if _, err := os.Stat(cc.feedsDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(cc.feedsDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	loaded := make(map[string]*FeedConfig, len(files))
	for _, file := range files {
		feedName := strings.TrimSuffix(filepath.Base(file), ".yml")

		config, err := cc.loadConfig(file, feedName)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}
		loaded[feedName] = config

		slog.Debug("Configuration loaded", "feed", feedName, "enabled", config.Settings.Enabled, "extract_content", config.Settings.ExtractContent)
	}

	cc.mu.Lock()
	cc.cache = loaded
	cc.mu.Unlock()

	return nil
}

// GetEnabledConfigs returns the enabled feeds ordered by name.
func (cc *ConfigCache) GetEnabledConfigs() []*FeedConfig {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	enabled := make([]*FeedConfig, 0, len(cc.cache))
	for _, config := range cc.cache {
		if config.Settings.Enabled {
			enabled = append(enabled, config)
		}
	}
	slices.SortFunc(enabled, func(a, b *FeedConfig) int {
		return strings.Compare(a.Name, b.Name)
	})
	return enabled
}

func (cc *ConfigCache) GetConfigCount() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.cache)
}

func (cc *ConfigCache) loadConfig(configFile, feedName string) (*FeedConfig, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var config FeedConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	config.Name = feedName
	if config.Settings.Timeout == 0 {
		config.Settings.Timeout = 30
	}

	if err := cc.validate.Struct(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}
