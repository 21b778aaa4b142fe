// Package defaults centralizes the constants the engine and CLI layer
// agree on: default ports per transport, timeouts, and probe counts.
package defaults

import "time"

const (
	Do53Port = "53"
	DoTPort  = "853"
	DoHPort  = "443"
	DoQPort  = "853"
	DoH3Port = "443"
	HTTPPath = "/dns-query"

	Timeout  = 5 * time.Second
	Interval = 1 * time.Second
	Count    = 10

	MaxHops      = 30
	TraceTimeout = 2 * time.Second

	WhoisCacheTTL  = 36000 * time.Second
	WhoisCachePath = "whois.cache"

	EDNSUDPSize = 1232

	EvaluatorMaxWorkers = 10
	WarmupSettle        = 1 * time.Second
)
