// Package config loads the explorer configuration.
//
// # Configuration Sources
//
// Values are layered, later sources winning:
//
//	1. Default() values
//	2. YAML file named by VX_CONFIG, or ./config.yaml when present
//	3. Environment variables (VX_*)
//
// # Environment Variables
//
// Nested sections use their YAML section name as a prefix:
//
//	VX_SERVER_PORT=8080
//	VX_DATASET_PATH=data/vol_df.csv
//	VX_SCREENER_DEFAULT_TOP_N=10
//	VX_SESSION_IDLE_TTL=30m
//	VX_SECURITY_ALLOWED_ORIGINS=http://localhost:3000,http://localhost:8080
//	VX_TELEMETRY_TRACE_EXPORTER=stdout
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//
// Tests use config.Default() or LoadFile with a temporary YAML file.
package config
