// Package mcp provides an MCP (Model Context Protocol) server for mrsbasis.
package mcp

import (
	"context"
	"fmt"
	"os"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/spectra-tools/mrsbasis/internal/catalog"
	"github.com/spectra-tools/mrsbasis/internal/config"
)

// Server wraps the MCP SDK server and exposes simulation, inspection and
// run-history tools.
type Server struct {
	server  *sdk.Server
	catalog *catalog.Catalog
	cfg     *config.Config
	root    string
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "mrsbasis")
	Version string // Server version
	Root    string // Project root directory
	App     *config.Config
}

// NewServer creates a new MCP server with mrsbasis tools.
func NewServer(cfg *Config) (*Server, error) {
	cat, err := catalog.Open(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to open run catalog: %w", err)
	}

	appCfg := cfg.App
	if appCfg == nil {
		appCfg = config.Default()
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, req *sdk.InitializedRequest) {
			// Client initialized, ready to serve
		},
	})

	s := &Server{
		server:  mcpServer,
		catalog: cat,
		cfg:     appCfg,
		root:    cfg.Root,
	}

	if err := s.registerTools(); err != nil {
		cat.Close()
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	return s, nil
}

// Run starts the MCP server over stdio transport.
// This blocks until the client disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Handle OS signals
	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan)

	go func() {
		<-sigChan
		cancel()
	}()

	// Run server (blocks)
	err := s.server.Run(ctx, &sdk.StdioTransport{})

	// Clean up
	s.catalog.Close()

	return err
}

// Close closes the server and releases resources.
func (s *Server) Close() error {
	return s.catalog.Close()
}
