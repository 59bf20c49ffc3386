// Package mcp exposes the alignment check as an MCP tool over stdio, so
// agent clients can consult the decision store's verdicts.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/concordhq/concord/pkg/model"
)

// Analyzer is the pipeline boundary this server wraps.
type Analyzer interface {
	Analyze(ctx context.Context, message string, history []model.ConversationTurn) (*model.AlignmentResult, error)
}

type turnParam struct {
	Sender  string `json:"sender" jsonschema:"who authored the turn: user, teammate, or guardian"`
	Content string `json:"content" jsonschema:"the turn text"`
}

type checkAlignmentParams struct {
	Message string      `json:"message" jsonschema:"the latest user utterance to check"`
	History []turnParam `json:"history,omitempty" jsonschema:"prior conversation turns in chronological order"`
}

// Server is an MCP stdio server with a single check_alignment tool.
type Server struct {
	analyzer Analyzer
	server   *mcp.Server
}

func New(analyzer Analyzer) *Server {
	s := &Server{analyzer: analyzer}

	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "concord",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "check_alignment",
		Description: "Check whether a conversation contradicts recorded organizational decisions",
	}, s.checkAlignment)

	s.server = srv
	return s
}

// Run serves on stdio until the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) checkAlignment(ctx context.Context, req *mcp.CallToolRequest, params *checkAlignmentParams) (*mcp.CallToolResult, any, error) {
	if params.Message == "" {
		return nil, nil, fmt.Errorf("message is required")
	}

	history := make([]model.ConversationTurn, 0, len(params.History))
	for _, t := range params.History {
		sender := model.Sender(t.Sender)
		if err := sender.Validate(); err != nil {
			return nil, nil, fmt.Errorf("invalid sender %q in history", t.Sender)
		}
		history = append(history, model.ConversationTurn{
			Sender:  sender,
			Content: t.Content,
		})
	}

	result, err := s.analyzer.Analyze(ctx, params.Message, history)
	if err != nil {
		return nil, nil, err
	}

	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, nil, err
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(encoded)},
		},
	}, result, nil
}
