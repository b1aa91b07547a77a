// Package mcp implements the client side of the Model Context Protocol over stdio,
// plus a small demonstration tool server.
//
// A Session owns one child process. Messages are newline-delimited JSON-RPC 2.0 on the
// child's stdin/stdout; stderr is drained into debug logs. A dedicated reader goroutine
// routes responses to waiting callers by request id, and a one-slot semaphore keeps a
// single request in flight. Responses with unknown ids are logged and dropped.
//
// Tool-level failures (isError results, or the server rejecting a tools/call) come back
// as domain.ToolCallResult values. Transport and protocol faults come back as
// *domain.TransportError and *domain.ProtocolError and leave the session unusable.
package mcp
