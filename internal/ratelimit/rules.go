package ratelimit

import (
	"errors"
	"time"

	"github.com/plata-bot/plata/pkg/config"
)

// Rules encapsulates configured rate limits and helper methods.
type Rules struct {
	config config.RateLimitConfig
}

// NewRules constructs rate limiting rules from configuration settings.
func NewRules(cfg config.RateLimitConfig) *Rules {
	return &Rules{config: cfg}
}

// Enabled reports whether rate limiting is active at all.
func (r *Rules) Enabled() bool {
	return r.config.Enabled
}

// IsWhitelisted returns true if the phone number bypasses rate limits.
func (r *Rules) IsWhitelisted(phone string) bool {
	for _, p := range r.config.Whitelist {
		if p == phone {
			return true
		}
	}
	return false
}

// GetGlobalLimit returns the limit shared by all senders.
func (r *Rules) GetGlobalLimit() (int, time.Duration, error) {
	return parseRule(r.config.Global)
}

// GetPerSenderLimit returns the limit applied per phone number.
func (r *Rules) GetPerSenderLimit() (int, time.Duration, error) {
	return parseRule(r.config.PerSender)
}

func parseRule(rule config.RateLimitRule) (int, time.Duration, error) {
	if rule.Window == "" {
		return rule.Limit, 0, errors.New("window duration is not set")
	}
	window, err := time.ParseDuration(rule.Window)
	if err != nil {
		return 0, 0, err
	}
	return rule.Limit, window, nil
}
