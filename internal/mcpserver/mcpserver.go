// Package mcpserver exposes the query flow as an MCP tool over stdio so
// agent runtimes can ask questions against the ingested documentation.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/WaterTechWarriors/PDMS2/internal/adapter/utils"
	"github.com/WaterTechWarriors/PDMS2/internal/config"
	"github.com/WaterTechWarriors/PDMS2/internal/domain/jobModel"
	"github.com/WaterTechWarriors/PDMS2/internal/rag"
	"github.com/WaterTechWarriors/PDMS2/pkg/logger_i"
)

var impl = &mcp.Implementation{Name: "pdms", Version: "1.0.0"}

type Server struct {
	ragService rag.Service
	logger     *logger_i.Logger
}

func NewServer(ragService rag.Service) *Server {
	return &Server{
		ragService: ragService,
		logger:     logger_i.NewLogger("MCP Server"),
	}
}

// Run serves the MCP protocol on stdin/stdout until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := mcp.NewServer(impl, nil)
	s.register(srv)
	s.logger.Info("MCP server listening on stdio")
	return srv.Run(ctx, &mcp.StdioTransport{})
}

// Register adds the tools to an externally owned MCP server. Tests use this
// with in-memory transports.
func (s *Server) Register(srv *mcp.Server) {
	s.register(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	sc := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		sc["required"] = required
	}
	return sc
}

type queryReq struct {
	Question string `json:"question"`
}

type queryResp struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

func (s *Server) register(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "query_documents",
		Description: "Answer a question from the ingested product documentation. Returns the answer and the ids of the sections it was grounded on.",
		InputSchema: inputSchema(map[string]any{
			"question": map[string]any{"type": "string", "description": "The question to answer"},
		}, []string{"question"}),
	}

	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var r queryReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("invalid arguments: %w", err))
			return &res, nil
		}
		if r.Question == "" {
			var res mcp.CallToolResult
			res.SetError(errors.New("question is required"))
			return &res, nil
		}

		job := jobModel.Job{
			Id:         utils.GetNewUUID(),
			TraceId:    utils.GetNewUUID(),
			JobType:    jobModel.JobTypeQuery,
			JobPayload: jobModel.JobPayload{Question: r.Question},
		}
		ctx = context.WithValue(ctx, config.TRACE_ID_KEY, job.TraceId)

		result := s.ragService.ProcessRequest(ctx, job, nil)
		if result.Status == jobModel.JobStatusError {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("query failed: %s", result.Error.Message))
			return &res, nil
		}

		data, err := json.Marshal(queryResp{
			Answer:  result.JobPayload.Answer,
			Sources: result.JobPayload.Sources,
		})
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("marshal: %w", err))
			return &res, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	})
}
