package utils

import (
	"time"
)

// ContextKey is the type for values propagated from the HTTP layer into flows
type ContextKey string

const (
	RequestIDKey ContextKey = "request_id"
	UserAgentKey ContextKey = "user_agent"
	IPAddressKey ContextKey = "ip_address"
	EndpointKey  ContextKey = "endpoint"
	TimeoutKey   ContextKey = "timeout"
	CancelFnKey  ContextKey = "cancel_fn"
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Funnel analytics constants
const (
	// StaleLeadThreshold is the default inactivity window after which a
	// broadcast-funnel lead is considered stale (7 days)
	StaleLeadThreshold = 7 * 24 * time.Hour

	// BottleneckWarnFactor flags a stage when its average dwell exceeds
	// the overall mean times this factor
	BottleneckWarnFactor = 1.5

	// BottleneckHighFactor escalates a warning to high severity
	BottleneckHighFactor = 2.0
)
