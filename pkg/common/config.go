package common

import (
	"fmt"
	"os"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	configEnvVar      = "CONFIG_PATH"
	defaultConfigPath = "config.yaml"
)

var defaultConfig = []byte(`
debugMode: false
prettyLogs: false

gateway:
  host: 0.0.0.0
  port: 3000
  externalURL: http://localhost:3000

database:
  redis:
    mode: single
    addrs:
      - localhost:6379
    clientName: AutoreplyGateway
    dialTimeout: 5s

oauth:
  google:
    clientId: ""
    clientSecret: ""
    redirectURL: ""
  microsoft:
    clientId: ""
    clientSecret: ""
    redirectURL: ""

generator:
  apiKey: ""
  baseURL: https://api.openai.com/v1
  model: gpt-3.5-turbo
  maxTokens: 100

mailer:
  pollInterval: 60s
  fetchLimit: 10
  gmailAddress: ""
  outlookAddress: ""
`)

// ConfigManager loads configuration from embedded defaults, then an optional
// YAML file pointed at by CONFIG_PATH (falling back to ./config.yaml).
type ConfigManager[T any] struct {
	k      *koanf.Koanf
	config T
}

// NewConfigManager creates a config manager and loads the configuration
func NewConfigManager[T any]() (*ConfigManager[T], error) {
	k := koanf.New(".")

	if err := k.Load(rawbytes.Provider(defaultConfig), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load default config: %w", err)
	}

	path := os.Getenv(configEnvVar)
	if path == "" {
		path = defaultConfigPath
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	cm := &ConfigManager[T]{k: k}
	if err := k.UnmarshalWithConf("", &cm.config, koanf.UnmarshalConf{
		Tag: "key",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			Result:           &cm.config,
			WeaklyTypedInput: true,
			Squash:           true,
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cm, nil
}

// GetConfig returns the loaded configuration
func (cm *ConfigManager[T]) GetConfig() T {
	return cm.config
}
