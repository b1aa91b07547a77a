/*
Package toolflow is an agent that answers questions by calling tools exposed by
Model Context Protocol (MCP) servers running as child processes.

A run moves through a small, deterministic stage graph: the agent starts every
configured server and collects its tools, asks a language model to pick one tool and
its arguments, calls that tool over stdio, and finally asks the model to write an
answer from the tool's result. Tool failures are routed to an error sink instead of
an answer.

# Concept

The stage graph lives in pkg/flow and knows nothing about tools or models. The
stages in pkg/agent share one typed context and reach the outside world only through
the ports in pkg/ports: a Completer for the model, a Connector for tool servers, and
sinks for answers and errors. Adapters for those ports live under pkg/adapters.

# Usage

	package main

	import (
		"context"
		"log"

		"github.com/aretw0/toolflow"
		"github.com/aretw0/toolflow/pkg/adapters/file"
		"github.com/aretw0/toolflow/pkg/adapters/llm/gemini"
		"github.com/aretw0/toolflow/pkg/adapters/mcp"
		"github.com/aretw0/toolflow/pkg/domain"
	)

	func main() {
		ctx := context.Background()

		model, err := gemini.New(ctx)
		if err != nil {
			log.Fatal(err)
		}
		defer model.Close()

		server, _ := domain.ParseLaunchSpec("uvx set-mcp")
		agent, err := toolflow.New(
			toolflow.WithCompleter(model),
			toolflow.WithConnector(mcp.NewLauncher()),
			toolflow.WithServers(server),
			toolflow.WithAnswerSink(file.NewSink("answer.md")),
		)
		if err != nil {
			log.Fatal(err)
		}

		res, err := agent.Run(ctx, "Analyze the financial statements of AOT stock from 2022 to 2024")
		if err != nil {
			log.Fatal(err)
		}
		log.Println(res.Shared.Answer)
	}
*/
package toolflow
