// Package handlers contains HTTP health checks and reusable middleware.
//
// This package provides:
//   - Health check interfaces and implementations
//   - CORS, caching, security header and body size middleware
//
// # Health Checks
//
// The HealthChecker interface allows registering multiple named health checks
// that are executed in parallel:
//
//	checker := handlers.NewCompositeHealthChecker("v1.0.0")
//	checker.AddCheck("database", handlers.NewDatabaseCheck(db))
//	checker.AddCheck("cache", handlers.NewCacheCheck(cache))
//
//	status := checker.Check(ctx)
//	if !status.Healthy {
//	    log.Printf("Health check failed: %s", status.Message)
//	}
//
// # Middleware
//
//	// Browser clients of the playground
//	cors := handlers.CORSMiddleware(handlers.DefaultCORSConfig())
//
//	// Reject oversized completion payloads with 413
//	limit := handlers.RequestSizeLimitMiddleware(64 << 10)
//
//	// Chain multiple middleware, outermost first
//	handler := handlers.ChainHandler(
//	    myHandler,
//	    cors,
//	    handlers.SecurityHeadersMiddleware,
//	    limit,
//	)
//
// Ranking responses can be cached by clients with CacheControlMiddleware;
// progress responses must use NoCacheMiddleware.
package handlers
