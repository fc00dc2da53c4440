// Package app wires the Volatility Explorer together: it loads the panel,
// builds the session store, the WebSocket hub and the services, and mounts
// them on a chi router.
//
// # Initialization Flow
//
//	1. Initialize OpenTelemetry and the business metrics
//	2. Load the realized volatility panel (fatal on error)
//	3. Create the session store and the WebSocket hub
//	4. Initialize services with their dependencies
//	5. Set up HTTP handlers and middleware
//
// # Usage
//
//	application, err := app.NewApplication(cfg, logger)
//	if err != nil {
//	    return err
//	}
//	return application.Run(ctx)
//
// Run blocks until ctx is cancelled. The HTTP server, the session janitor and
// the hub run in one errgroup; the first failure stops the others.
//
// Initialization errors are returned to the caller. The package never calls
// os.Exit.
package app
