// Package metrics holds the Prometheus instruments for scripthub.
//
// Metrics live on a private registry (not the global default) so tests can
// build as many instances as they need:
//   - scripthub_http_requests_total{route,method,code}
//   - scripthub_http_request_duration_seconds{route,method}
//   - scripthub_projects_saved_total
//   - scripthub_project_bytes_written_total
//   - scripthub_projects (gauge, project count at the last listing)
//
// Handler() serves the exposition format for /metrics.
package metrics
