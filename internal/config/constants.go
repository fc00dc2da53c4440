package config

// Application info
const (
	AppName    = "Volatility Explorer"
	AppVersion = "1.0.0"
)

// HTTP header and query names shared by the transport and middleware layers
const (
	SessionHeader     = "X-Session-ID"
	SessionQueryParam = "session"
	RequestIDHeader   = "X-Request-ID"
)
