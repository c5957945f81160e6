package mcpserver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/WaterTechWarriors/PDMS2/internal/domain/jobModel"
)

type stubRagService struct {
	answer string
	fail   bool
}

func (s *stubRagService) ProcessRequest(ctx context.Context, job jobModel.Job, history []string) jobModel.Job {
	if s.fail {
		job.Status = jobModel.JobStatusError
		job.Error = jobModel.JobError{Code: 500, Message: "Internal Server Error"}
		return job
	}
	job.JobPayload.Answer = s.answer
	job.JobPayload.Sources = []string{"sec-1", "sec-2"}
	job.CurrentStep = jobModel.Complete
	return job
}

func (s *stubRagService) IngestDocument(ctx context.Context, job jobModel.Job) jobModel.Job {
	return job
}

func mcpSession(t *testing.T, svc *stubRagService) *mcp.ClientSession {
	t.Helper()
	srv := mcp.NewServer(impl, nil)
	NewServer(svc).Register(srv)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	client := mcp.NewClient(impl, nil)
	session, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func TestQueryDocumentsTool(t *testing.T) {
	session := mcpSession(t, &stubRagService{answer: "Charge it for four hours."})

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "query_documents",
		Arguments: map[string]any{"question": "how long to charge?"},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %v", result.Content)
	}

	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatal("expected TextContent")
	}
	var resp queryResp
	if err := json.Unmarshal([]byte(tc.Text), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Answer != "Charge it for four hours." {
		t.Errorf("answer = %q", resp.Answer)
	}
	if len(resp.Sources) != 2 || resp.Sources[0] != "sec-1" {
		t.Errorf("sources = %v", resp.Sources)
	}
}

func TestQueryDocumentsTool_EmptyQuestion(t *testing.T) {
	session := mcpSession(t, &stubRagService{})

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "query_documents",
		Arguments: map[string]any{},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected a tool error for missing question")
	}
}

func TestQueryDocumentsTool_ServiceFailure(t *testing.T) {
	session := mcpSession(t, &stubRagService{fail: true})

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "query_documents",
		Arguments: map[string]any{"question": "anything"},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected a tool error when the query flow fails")
	}
}
