package config

import "fmt"

// validate rejects configurations that cannot work at runtime.
func validate(cfg *Config) error {
	if cfg.ListenAddr == "" {
		return fmt.Errorf("listen address cannot be empty")
	}
	if cfg.MaxResults < 0 {
		return fmt.Errorf("max results cannot be negative")
	}
	if cfg.MaxPrice < 0 {
		return fmt.Errorf("max price cannot be negative")
	}
	if cfg.ReplyWait <= 0 {
		return fmt.Errorf("reply wait must be positive")
	}
	if cfg.WatchInterval <= 0 {
		return fmt.Errorf("watch interval must be positive")
	}
	if cfg.NavigationsPerMinute < 0 {
		return fmt.Errorf("navigations per minute cannot be negative")
	}
	return nil
}
