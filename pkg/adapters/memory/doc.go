// Package memory provides in-process implementations of the ports: answer and error
// sinks, tool servers and a scripted completer. They back tests and dry runs.
package memory
