package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/parley"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
	"github.com/aretw0/parley/pkg/runner"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// RuleSetsURI is the resource exposing the active rule set catalogue.
const RuleSetsURI = "parley://rulesets"

// TurnResult mirrors domain.Response with schema descriptions for MCP clients.
type TurnResult struct {
	SessionID      string         `json:"sessionId" jsonschema_description:"Session the turn belongs to"`
	InputRequired  bool           `json:"inputRequired" jsonschema_description:"Whether the next turn must carry customer input"`
	Message        string         `json:"message,omitempty" jsonschema_description:"Prompt or message to present"`
	Terminate      bool           `json:"terminate,omitempty" jsonschema_description:"Indicates the session has ended"`
	RuleSet        string         `json:"ruleSet" jsonschema_description:"Rule set of the rule that produced the turn"`
	Rule           string         `json:"rule" jsonschema_description:"Rule that produced the turn"`
	RuleType       string         `json:"ruleType" jsonschema_description:"Type of that rule"`
	QueueID        string         `json:"queueId,omitempty" jsonschema_description:"Queue to transfer to"`
	ExternalNumber string         `json:"externalNumber,omitempty" jsonschema_description:"Number to transfer to"`
	State          map[string]any `json:"state" jsonschema_description:"Session state after the turn"`
}

// RuleSetSummary is the compact catalogue entry returned by list_rule_sets.
type RuleSetSummary struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	EndPoints   []string `json:"endPoints,omitempty"`
	Enabled     bool     `json:"enabled"`
	Rules       int      `json:"rules"`
}

// RuleSetLister is implemented by engines that can report their loaded rule sets.
type RuleSetLister interface {
	RuleSets(ctx context.Context) ([]domain.RuleSet, error)
}

// Server wraps a TurnEngine and exposes it as an MCP Server.
type Server struct {
	engine    ports.TurnEngine
	catalog   RuleSetLister
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance. catalog may be nil, in which case
// the rule set tool and resource are not registered.
func NewServer(engine ports.TurnEngine, catalog RuleSetLister) *Server {
	s := &Server{
		engine:    engine,
		catalog:   catalog,
		mcpServer: server.NewMCPServer("parley-mcp", strings.TrimSpace(parley.Version)),
	}
	s.registerTools()
	if catalog != nil {
		s.registerResources()
	}
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops it when ctx ends.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		slog.Info("Shutdown signal received, stopping MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	turnTool := mcp.NewTool("turn",
		mcp.WithDescription("Run one dialogue turn. Start with event_type=new, continue with input or resume."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier")),
		mcp.WithString("event_type", mcp.Required(), mcp.Description("One of new, resume, input, hangup")),
		mcp.WithString("end_point", mcp.Description("Endpoint the session starts at (new only)")),
		mcp.WithString("input", mcp.Description("Customer input (input only)")),
		mcp.WithString("contact_attributes", mcp.Description("JSON object of channel attributes (new only)")),
		mcp.WithOutputSchema[TurnResult](),
	)
	s.mcpServer.AddTool(turnTool, mcp.NewStructuredToolHandler(s.handleTurn))

	if s.catalog == nil {
		return
	}
	s.mcpServer.AddTool(mcp.NewTool("list_rule_sets",
		mcp.WithDescription("List the loaded rule sets with their endpoints."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		summaries, err := s.summaries(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
		}
		jsonBytes, _ := json.Marshal(summaries)
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

func (s *Server) handleTurn(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (TurnResult, error) {
	req := domain.Request{}
	req.SessionID, _ = args["session_id"].(string)
	eventType, _ := args["event_type"].(string)
	req.EventType = domain.EventType(strings.ToLower(strings.TrimSpace(eventType)))
	req.EndPoint, _ = args["end_point"].(string)

	if req.SessionID == "" {
		return TurnResult{}, errors.New("session_id is required")
	}
	if !req.EventType.Valid() {
		return TurnResult{}, fmt.Errorf("unknown event_type %q", eventType)
	}

	if attrs, ok := args["contact_attributes"].(string); ok && attrs != "" {
		if err := json.Unmarshal([]byte(attrs), &req.ContactAttributes); err != nil {
			return TurnResult{}, fmt.Errorf("contact_attributes: %w", err)
		}
	}

	if input, ok := args["input"].(string); ok {
		clean, err := runner.SanitizeInput(input)
		if err != nil {
			slog.Warn("MCP Turn: Input rejected", "error", err, "size", len(input))
			return TurnResult{}, fmt.Errorf("input rejected: %w", err)
		}
		req.Input = clean
	}

	resp, err := s.engine.Turn(ctx, req)
	if err != nil {
		return TurnResult{}, fmt.Errorf("turn failed: %w", err)
	}
	return TurnResult{
		SessionID:      resp.SessionID,
		InputRequired:  resp.InputRequired,
		Message:        resp.Message,
		Terminate:      resp.Terminate,
		RuleSet:        resp.RuleSet,
		Rule:           resp.Rule,
		RuleType:       resp.RuleType,
		QueueID:        resp.QueueID,
		ExternalNumber: resp.ExternalNumber,
		State:          resp.State,
	}, nil
}

func (s *Server) summaries(ctx context.Context) ([]RuleSetSummary, error) {
	ruleSets, err := s.catalog.RuleSets(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]RuleSetSummary, 0, len(ruleSets))
	for _, rs := range ruleSets {
		out = append(out, RuleSetSummary{
			Name:        rs.Name,
			Description: rs.Description,
			EndPoints:   rs.EndPoints,
			Enabled:     rs.Enabled,
			Rules:       len(rs.Rules),
		})
	}
	return out, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(RuleSetsURI, "Loaded Rule Sets",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		summaries, err := s.summaries(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list rule sets: %w", err)
		}
		jsonBytes, _ := json.Marshal(summaries)

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      RuleSetsURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
