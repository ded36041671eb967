// Package handlers contains the reusable pieces of the KopiO REST API:
// caller identity, health checks and generic middleware.
//
// # Identity
//
// KopiO does not authenticate users itself. The identity provider in front
// of the API forwards the caller in two trusted headers:
//
//	X-User-ID:   3f0c9a2e-...
//	X-User-Role: student | admin
//
// IdentityMiddleware stores them in the request context; RequireIdentity
// and RequireAdmin guard individual routes:
//
//	mux.HandleFunc("GET /api/v1/profile", handlers.RequireIdentity(s.handleGetProfile))
//	mux.HandleFunc("GET /api/v1/admin/stats", handlers.RequireAdmin(s.handlePlatformStats))
//
// # Health Checks
//
// Checks run in parallel. A failed critical check makes /ready answer 503;
// a failed optional check only degrades /health:
//
//	checker := handlers.NewCompositeHealthChecker("v1")
//	checker.AddCritical("store", handlers.PingCheck(store))
//	checker.AddOptional("cache", handlers.PingCheck(cache))
package handlers
