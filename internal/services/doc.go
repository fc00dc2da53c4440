// Package services implements the business logic layer of the Volatility
// Explorer. It sits between the HTTP handlers and the core packages (panel,
// screener, timeseries, portfolio) and adds the cross-cutting concerns those
// packages leave out: request defaults, memoization, session lookup,
// tracing, metrics and push notifications.
//
// # Available Services
//
//	- ScreenerService: ranks instruments by mean volatility over a window,
//	  memoizing results and coalescing identical concurrent queries
//	- InstrumentService: lists instruments and extracts per-instrument series
//	- PortfolioService: per-session ledger mutations and valuations
//	- PanelService: dataset summary for the client's initial controls
//	- HealthService: liveness, readiness and version information
//
// The dataset is loaded once at startup and never mutated, so services share
// it without locking. Ledgers are owned by sessions and synchronize
// themselves.
package services
