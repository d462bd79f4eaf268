package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// DynamicConfig represents runtime-changeable configuration, loaded from a
// YAML file and hot-reloaded on change
type DynamicConfig struct {
	Limits    Limits          `yaml:"limits"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Metadata  ConfigMetadata  `yaml:"metadata"`
}

// Limits holds application limits
type Limits struct {
	DefaultPageSize        int `yaml:"defaultPageSize"`
	MaxPageSize            int `yaml:"maxPageSize"`
	MaxMessageBytes        int `yaml:"maxMessageBytes"`
	MaxParticipantsPerConv int `yaml:"maxParticipantsPerConversation"`
}

// WebSocketConfig holds WebSocket tuning knobs
type WebSocketConfig struct {
	Enabled           bool `yaml:"enabled"`
	MaxConnections    int  `yaml:"maxConnections"`
	HeartbeatInterval int  `yaml:"heartbeatInterval"` // seconds
	SendQueueSize     int  `yaml:"sendQueueSize"`
}

// ConfigMetadata holds metadata about the configuration
type ConfigMetadata struct {
	Version   string    `yaml:"version"`
	UpdatedAt time.Time `yaml:"updatedAt"`
}

// DefaultDynamicConfig returns the values used when no config file is given
func DefaultDynamicConfig() *DynamicConfig {
	return &DynamicConfig{
		Limits: Limits{
			DefaultPageSize:        50,
			MaxPageSize:            500,
			MaxMessageBytes:        64 * 1024,
			MaxParticipantsPerConv: 256,
		},
		WebSocket: WebSocketConfig{
			Enabled:           true,
			MaxConnections:    10000,
			HeartbeatInterval: 30,
			SendQueueSize:     256,
		},
		Metadata: ConfigMetadata{Version: "defaults"},
	}
}

// ConfigWatcher watches the dynamic configuration file for changes
type ConfigWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	current  *DynamicConfig
	mu       sync.RWMutex
	onChange []func(*DynamicConfig)
	logger   *zap.Logger
	stopCh   chan struct{}
}

// NewConfigWatcher creates a new configuration watcher
func NewConfigWatcher(configPath string, logger *zap.Logger) (*ConfigWatcher, error) {
	cfg, err := loadConfigFromFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load initial config: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	if err := watcher.Add(configPath); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch config file: %w", err)
	}

	// Also watch the directory for atomic saves (rename operations)
	if err := watcher.Add(filepath.Dir(configPath)); err != nil {
		logger.Warn("Failed to watch config directory", zap.Error(err))
	}

	return &ConfigWatcher{
		path:     configPath,
		watcher:  watcher,
		current:  cfg,
		onChange: make([]func(*DynamicConfig), 0),
		logger:   logger,
		stopCh:   make(chan struct{}),
	}, nil
}

// Start begins watching for configuration changes
func (w *ConfigWatcher) Start() {
	go w.watchLoop()
	w.logger.Info("Configuration watcher started", zap.String("path", w.path))
}

// Stop stops watching for configuration changes
func (w *ConfigWatcher) Stop() {
	close(w.stopCh)
	w.watcher.Close()
	w.logger.Info("Configuration watcher stopped")
}

func (w *ConfigWatcher) watchLoop() {
	// Debounce so an editor's write+rename reloads once
	var debounceTimer *time.Timer
	debounceDuration := 100 * time.Millisecond

	for {
		select {
		case <-w.stopCh:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounceDuration, func() {
					w.handleConfigChange()
				})
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", zap.Error(err))
		}
	}
}

func (w *ConfigWatcher) handleConfigChange() {
	w.logger.Info("Configuration file changed, reloading", zap.String("path", w.path))

	newConfig, err := loadConfigFromFile(w.path)
	if err != nil {
		w.logger.Error("Failed to reload configuration", zap.Error(err))
		return
	}

	if err := validateDynamicConfig(newConfig); err != nil {
		w.logger.Error("Invalid configuration, keeping current", zap.Error(err))
		return
	}

	w.mu.Lock()
	old := w.current
	w.current = newConfig
	handlers := append([]func(*DynamicConfig){}, w.onChange...)
	w.mu.Unlock()

	if old.Limits != newConfig.Limits {
		w.logger.Info("Limits changed",
			zap.Int("defaultPageSize", newConfig.Limits.DefaultPageSize),
			zap.Int("maxPageSize", newConfig.Limits.MaxPageSize),
		)
	}

	for _, handler := range handlers {
		go handler(newConfig)
	}

	w.logger.Info("Configuration reloaded successfully",
		zap.String("version", newConfig.Metadata.Version),
	)
}

// OnChange registers a callback for configuration changes
func (w *ConfigWatcher) OnChange(handler func(*DynamicConfig)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = append(w.onChange, handler)
}

// GetCurrent returns the current configuration
func (w *ConfigWatcher) GetCurrent() *DynamicConfig {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// GetLimits returns current limits
func (w *ConfigWatcher) GetLimits() Limits {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current.Limits
}

// PageSizeLimits returns the current paging defaults. Callers read this per
// request, so a reloaded file takes effect without a restart.
func (w *ConfigWatcher) PageSizeLimits() (int, int) {
	limits := w.GetLimits()
	return limits.DefaultPageSize, limits.MaxPageSize
}

func validateDynamicConfig(cfg *DynamicConfig) error {
	if cfg.Limits.DefaultPageSize <= 0 {
		return fmt.Errorf("defaultPageSize must be positive")
	}
	if cfg.Limits.MaxPageSize < cfg.Limits.DefaultPageSize {
		return fmt.Errorf("maxPageSize must be at least defaultPageSize")
	}
	if cfg.Limits.MaxMessageBytes <= 0 {
		return fmt.Errorf("maxMessageBytes must be positive")
	}
	if cfg.WebSocket.HeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeatInterval must be positive")
	}
	if cfg.WebSocket.SendQueueSize <= 0 {
		return fmt.Errorf("sendQueueSize must be positive")
	}
	return nil
}

// loadConfigFromFile loads configuration from a YAML file, filling unset
// fields from the defaults
func loadConfigFromFile(path string) (*DynamicConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultDynamicConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	if cfg.Metadata.Version == "" || cfg.Metadata.Version == "defaults" {
		cfg.Metadata.Version = "1.0.0"
	}
	cfg.Metadata.UpdatedAt = time.Now()

	return cfg, nil
}
