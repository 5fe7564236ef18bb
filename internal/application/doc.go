// Package application wires the planner, planning service, plan storage, job
// dispatcher and HTTP API into one server, leaving the main package to CLI
// parsing and shutdown orchestration.
package application
