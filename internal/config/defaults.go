package config

import "time"

// Default constants for application configuration
const (
	DefaultLogLevel   = "info"
	DefaultJSONLog    = false
	DefaultListenAddr = "127.0.0.1:8000"
	DefaultUserAgent  = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

	DefaultCity       = "Hamilton"
	DefaultQueries    = "Horror VHS,Guitar"
	DefaultMaxPrice   = 100000 // site's smallest currency unit
	DefaultMaxResults = 8

	DefaultReplyWait            = 120 * time.Second
	DefaultJobTimeout           = 15 * time.Minute
	DefaultSettleDelay          = 5 * time.Second
	DefaultLoginWait            = 10 * time.Minute
	DefaultNavigationsPerMinute = 20.0

	DefaultWatchInterval = 3 * time.Minute

	DefaultSMTPHost = "smtp.gmail.com"
	DefaultSMTPPort = "587"
)
