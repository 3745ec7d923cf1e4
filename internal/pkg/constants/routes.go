package constants

// Static route constants
const (
	APIRoute       = "/api"
	ExtensionRoute = "/ext"
	AdminRoute     = "/admin"
	HealthRoute    = "/health"
	MetricsRoute   = "/metrics"
)
