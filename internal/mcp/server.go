// Package mcp exposes the kernel's read-only status surface as an
// MCP server over stdio. Tools report; they never mutate governance
// state, which only moves through the proposal workflow.
package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wardenhq/warden/internal/kernel"
)

// Server wraps the MCP SDK server around a kernel.
type Server struct {
	mcpServer *mcpsdk.Server
	kernel    *kernel.Kernel
}

// New creates an MCP server over the given kernel.
func New(k *kernel.Kernel, version string) *Server {
	s := &Server{kernel: k}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "warden",
			Version: version,
		},
		nil,
	)
	s.registerTools()
	return s
}

// Run starts the server on stdio transport. Blocks until ctx is
// cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// registerTools adds the read-only tool set.
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "warden_status",
		Description: "Governance summary: snapshot hash, ack epoch, module/capability/rule counts, drift and portability.",
	}, s.handleStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "warden_capabilities",
		Description: "List registered capabilities with their enablement state, type, tier, and hazards.",
	}, s.handleCapabilities)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "warden_rules",
		Description: "List active restriction rules with their scope, verdict, and content hash.",
	}, s.handleRules)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "warden_proposals",
		Description: "List governance proposals. Pending proposals show the required acknowledgment phrase.",
	}, s.handleProposals)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "warden_log",
		Description: "Query recent authorization decisions, newest first.",
	}, s.handleLog)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "warden_check",
		Description: "Dry-run an invocation against the gate without executing anything. The decision is still logged.",
	}, s.handleCheck)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "warden_drift",
		Description: "Replay the decision log against the current snapshot and report drift (none, unknown, or conflict).",
	}, s.handleDrift)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "warden_portability",
		Description: "Report configuration that would not survive a move to another machine.",
	}, s.handlePortability)
}
