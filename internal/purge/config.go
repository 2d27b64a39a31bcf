// Package purge consumes qid purge events from Kafka and removes the
// affected records from both cache tiers.
package purge

import (
	"strings"
	"time"
)

type Config struct {
	Enabled bool

	Brokers []string
	Topic   string
	GroupID string

	SessionTimeout   time.Duration
	Heartbeat        time.Duration
	RebalanceTimeout time.Duration
	InitialOldest    bool
}

// NewConfig fills consumer-group timings with defaults; brokers is a
// comma-separated list.
func NewConfig(enabled bool, brokers, topic, group string) Config {
	if topic == "" {
		topic = "qid-purge"
	}
	if group == "" {
		group = "qid-purger"
	}
	return Config{
		Enabled:          enabled,
		Brokers:          split(brokers),
		Topic:            topic,
		GroupID:          group,
		SessionTimeout:   30 * time.Second,
		Heartbeat:        3 * time.Second,
		RebalanceTimeout: 30 * time.Second,
		InitialOldest:    true,
	}
}

func split(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if x := strings.TrimSpace(p); x != "" {
			out = append(out, x)
		}
	}
	if len(out) == 0 {
		out = []string{"localhost:9092"}
	}
	return out
}
