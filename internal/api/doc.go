// Package api hosts the HTTP server, middleware, and REST handlers. Notable routes:
//   - GET /healthz and /readyz for health checks, GET /metrics for Prometheus.
//   - GET /api/health for version and configured-key reporting.
//   - POST /api/crawl, /api/analyze, and /api/market-data for the site
//     crawl, business summary, and market report operations.
package api
