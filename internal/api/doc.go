// Package api serves the local HTTP status and control surface used by
// `vidresume serve`.
//
// Routes:
//
//	GET  /health                      liveness and uptime
//	GET  /status                      stage snapshots, latest runs and resume
//	GET  /logs?lines=&offset=&stage=  log file tail
//	GET  /videos                      videos with recorded runs, newest first
//	GET  /runs/{id}                   one recorded stage pass
//	POST /stages/{name}/start         start a stage
//	POST /stages/{name}/restart       restart a stage
//	POST /stages/{name}/deactivate    cancel a stage
//
// DTOs use camelCase JSON tags. Timestamps use RFC3339 with milliseconds.
package api
