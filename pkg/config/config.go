package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration lets YAML carry values like "500ms" or "5m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the YAML configuration shared by the API and the worker.
// Anything not set falls back to defaults that match local development.
type Config struct {
	Kafka    KafkaConfig    `yaml:"kafka"`
	Workflow WorkflowConfig `yaml:"workflow"`
}

type KafkaConfig struct {
	EventsTopic   string `yaml:"events_topic"`
	DLQTopic      string `yaml:"dlq_topic"`
	ConsumerGroup string `yaml:"consumer_group"`
	MaxDeliveries int    `yaml:"max_deliveries"`
}

type WorkflowConfig struct {
	PublishDelay   Duration `yaml:"publish_delay"`
	PublishTimeout Duration `yaml:"publish_timeout"`
	BlacklistTTL   Duration `yaml:"blacklist_ttl"`
}

func Default() *Config {
	return &Config{
		Kafka: KafkaConfig{
			EventsTopic:   "policy.events",
			DLQTopic:      "policy.events.dlq",
			ConsumerGroup: "policy-workflow",
			MaxDeliveries: 5,
		},
		Workflow: WorkflowConfig{
			PublishDelay:   Duration(500 * time.Millisecond),
			PublishTimeout: Duration(10 * time.Second),
			BlacklistTTL:   Duration(5 * time.Minute),
		},
	}
}

func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.Kafka.MaxDeliveries < 1 {
		return nil, fmt.Errorf("kafka.max_deliveries must be at least 1")
	}
	return cfg, nil
}
