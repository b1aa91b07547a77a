/*
Package observability provides tools for monitoring a toolflow agent.

It includes Prometheus collectors and structured logging fed by flow lifecycle
hooks, and an event stream for watching stage transitions as they happen.
*/
package observability
