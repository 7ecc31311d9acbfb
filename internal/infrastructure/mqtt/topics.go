package mqtt

import (
	"fmt"
	"strings"
)

// DefaultTopicPrefix is used when no prefix is configured.
const DefaultTopicPrefix = "casamack/tibber"

// Topics builds the topic names under a prefix.
//
//	topics := mqtt.Topics{Prefix: "casamack/tibber"}
//	topics.Refined("2026-10-18", 7) // "casamack/tibber/refined/2026-10-18/7"
type Topics struct {
	Prefix string
}

func (t Topics) prefix() string {
	p := strings.TrimSuffix(t.Prefix, "/")
	if p == "" {
		return DefaultTopicPrefix
	}
	return p
}

// Status returns the retained online/offline status topic.
func (t Topics) Status() string {
	return t.prefix() + "/status"
}

// Refined returns the retained topic of one refined hour.
func (t Topics) Refined(date string, hour int) string {
	return fmt.Sprintf("%s/refined/%s/%d", t.prefix(), date, hour)
}

// allRefined matches every refined hour topic.
func (t Topics) allRefined() string {
	return t.prefix() + "/refined/#"
}

// Current returns the retained topic holding the current hour.
func (t Topics) Current() string {
	return t.prefix() + "/current"
}

// RefreshCommand returns the topic that requests an immediate run.
func (t Topics) RefreshCommand() string {
	return t.prefix() + "/command/refresh"
}
