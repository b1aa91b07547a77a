/*
Package domain contains the core data model shared by the toolflow engine and its adapters.

It is kept free of I/O: descriptors and results are plain values, and the error taxonomy
distinguishes engine faults (transport, protocol, decode) from tool-level failures, which
are ordinary results.

# Key Entities

  - ToolDescriptor / ToolCatalog: the tools advertised by one or more tool servers.
  - ToolInvocationDecision: the model's choice of tool and arguments.
  - ToolCallResult: the outcome of invoking a tool (value or error message).
  - LaunchSpec: the command line used to start a tool server process.
*/
package domain
