package rag_test

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/WaterTechWarriors/PDMS2/internal/config"
	"github.com/WaterTechWarriors/PDMS2/internal/domain/commonModels"
	"github.com/WaterTechWarriors/PDMS2/internal/domain/jobModel"
	"github.com/WaterTechWarriors/PDMS2/internal/rag"
)

func TestProcessRequest_Scenarios(t *testing.T) {
	tests := []struct {
		name           string
		setupMocks     func(e *MockEmbedder, v *MockVectorDB, l *MockLLM, d *MockDocStore)
		expectedStep   jobModel.InternalStatus
		expectedStatus jobModel.JobStatus
		expectedAnswer string
		expectedErr    string
	}{
		{
			name: "Success_Full_Flow",
			setupMocks: func(e *MockEmbedder, v *MockVectorDB, l *MockLLM, d *MockDocStore) {
				v.OnGetCachedAnswer = func(ctx context.Context, emb []float32) (string, bool, error) {
					return "", false, nil
				}
				l.OnGenerate = func(ctx context.Context, q string, m []string, h []string) (string, error) {
					return "final answer", nil
				}
			},
			expectedStep:   jobModel.Complete,
			expectedStatus: jobModel.JobStatusQueued,
			expectedAnswer: "final answer",
		},
		{
			name: "Success_Cache_Hit",
			setupMocks: func(e *MockEmbedder, v *MockVectorDB, l *MockLLM, d *MockDocStore) {
				v.OnGetCachedAnswer = func(ctx context.Context, emb []float32) (string, bool, error) {
					return "cached answer", true, nil
				}
			},
			expectedStep:   jobModel.Complete,
			expectedStatus: jobModel.JobStatusQueued,
			expectedAnswer: "cached answer",
		},
		{
			name: "Failure_Embedding",
			setupMocks: func(e *MockEmbedder, v *MockVectorDB, l *MockLLM, d *MockDocStore) {
				e.OnGetEmbedding = func(ctx context.Context, text string) ([]float32, error) {
					return nil, errors.New("api limit")
				}
			},
			expectedStatus: jobModel.JobStatusError,
			expectedErr:    "EMBEDDING_FAILURE",
		},
		{
			name: "Failure_Vector_Search",
			setupMocks: func(e *MockEmbedder, v *MockVectorDB, l *MockLLM, d *MockDocStore) {
				v.OnGetCachedAnswer = func(ctx context.Context, emb []float32) (string, bool, error) {
					return "", false, nil
				}
				v.OnSearch = func(ctx context.Context, v []float32) ([]commonModels.SectionMatch, error) {
					return nil, errors.New("db timeout")
				}
			},
			expectedStatus: jobModel.JobStatusError,
			expectedErr:    "VECTOR_DB_FAILURE",
		},
		{
			name: "Failure_LLM_Generation",
			setupMocks: func(e *MockEmbedder, v *MockVectorDB, l *MockLLM, d *MockDocStore) {
				v.OnGetCachedAnswer = func(ctx context.Context, emb []float32) (string, bool, error) {
					return "", false, nil
				}
				l.OnGenerate = func(ctx context.Context, q string, m []string, h []string) (string, error) {
					return "", errors.New("provider down")
				}
			},
			expectedStatus: jobModel.JobStatusError,
			expectedErr:    "LLM_GENERATION_FAILURE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mEmbed := &MockEmbedder{}
			mVec := &MockVectorDB{}
			mLLM := &MockLLM{}
			mDocs := &MockDocStore{}

			tt.setupMocks(mEmbed, mVec, mLLM, mDocs)

			s := rag.NewService(mVec, mLLM, mEmbed, mDocs, &MockPopulator{})

			ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "test-trace")
			job := jobModel.Job{
				Id:     "test-job",
				Status: jobModel.JobStatusQueued,
				JobPayload: jobModel.JobPayload{
					Question: "test question",
				},
			}

			result := s.ProcessRequest(ctx, job, []string{})

			if result.Status != tt.expectedStatus {
				t.Errorf("Step got %v, want %v", result.Status, tt.expectedStatus)
			}

			if tt.expectedAnswer != "" && result.JobPayload.Answer != tt.expectedAnswer {
				t.Errorf("Answer got %s, want %s", result.JobPayload.Answer, tt.expectedAnswer)
			}

			if tt.expectedErr != "" && result.Error.Code != http.StatusInternalServerError {
				t.Errorf("Error Code got %d, want %s", result.Error.Code, tt.expectedErr)
			}
		})
	}
}

func TestProcessRequest_DocStoreEnrichment(t *testing.T) {
	mVec := &MockVectorDB{
		OnSearch: func(ctx context.Context, v []float32) ([]commonModels.SectionMatch, error) {
			return []commonModels.SectionMatch{
				{Content: "Charge for four hours before first use.", SectionId: "sec-1", DocumentId: "doc-1"},
				{Content: "Orphaned section text.", SectionId: "sec-2", DocumentId: "doc-missing"},
			}, nil
		},
	}
	mDocs := &MockDocStore{
		OnGetDocument: func(ctx context.Context, id string) (commonModels.Document, bool, error) {
			if id == "doc-1" {
				return commonModels.Document{
					Id:          "doc-1",
					ProductName: "Cordless Vacuum VOLT FX-950LI",
					NumPieces:   3,
				}, true, nil
			}
			return commonModels.Document{}, false, nil
		},
	}
	mLLM := &MockLLM{}

	s := rag.NewService(mVec, mLLM, &MockEmbedder{}, mDocs, &MockPopulator{})

	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "enrich-trace")
	job := jobModel.Job{Id: "enrich-job", JobPayload: jobModel.JobPayload{Question: "how long to charge?"}}

	result := s.ProcessRequest(ctx, job, nil)

	if len(mLLM.ReceivedContexts) != 2 {
		t.Fatalf("expected 2 context blocks, got %d", len(mLLM.ReceivedContexts))
	}
	first := mLLM.ReceivedContexts[0]
	if !strings.HasPrefix(first, "Product: Cordless Vacuum VOLT FX-950LI\nNumber of pieces: 3\n\n") {
		t.Errorf("enriched block missing product facts: %q", first)
	}
	if !strings.Contains(first, "Charge for four hours") {
		t.Errorf("enriched block lost section content: %q", first)
	}
	// Missing document row degrades to bare content, never fails the query.
	if mLLM.ReceivedContexts[1] != "Orphaned section text." {
		t.Errorf("orphaned section should pass through untouched, got %q", mLLM.ReceivedContexts[1])
	}

	wantSources := []string{"sec-1", "sec-2"}
	if len(result.JobPayload.Sources) != len(wantSources) {
		t.Fatalf("sources got %v, want %v", result.JobPayload.Sources, wantSources)
	}
	for i, want := range wantSources {
		if result.JobPayload.Sources[i] != want {
			t.Errorf("source[%d] got %s, want %s", i, result.JobPayload.Sources[i], want)
		}
	}
}

func TestIngestDocument_Scenarios(t *testing.T) {
	tests := []struct {
		name           string
		populateErr    error
		expectedStatus jobModel.JobStatus
	}{
		{
			name:           "Ingestion_Success",
			expectedStatus: jobModel.JobStatusComplete,
		},
		{
			name:           "Ingestion_Failure",
			populateErr:    errors.New("connection refused"),
			expectedStatus: jobModel.JobStatusError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			staged := filepath.Join(t.TempDir(), "test_ingest.txt")
			if err := os.WriteFile(staged, []byte("test content for ingestion"), 0644); err != nil {
				t.Fatalf("staging upload failed: %v", err)
			}

			mPop := &MockPopulator{
				OnPopulateFile: func(ctx context.Context, docPath string) error {
					return tt.populateErr
				},
			}

			s := rag.NewService(&MockVectorDB{}, &MockLLM{}, &MockEmbedder{}, &MockDocStore{}, mPop)

			ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "ingest-trace")
			job := jobModel.Job{
				Id: "ingest-job-1",
				JobPayload: jobModel.JobPayload{
					IngestFileName: "test_ingest.txt",
					IngestURL:      staged,
				},
			}

			result := s.IngestDocument(ctx, job)

			if result.Status != tt.expectedStatus {
				t.Errorf("Status got %v, want %v", result.Status, tt.expectedStatus)
			}
			if len(mPop.Populated) != 1 || mPop.Populated[0] != staged {
				t.Errorf("populator called with %v, want [%s]", mPop.Populated, staged)
			}

			_, statErr := os.Stat(staged)
			if tt.populateErr == nil && !os.IsNotExist(statErr) {
				t.Error("staged upload should be removed after a successful ingest")
			}
			if tt.populateErr != nil && statErr != nil {
				t.Error("staged upload should survive a failed ingest")
			}
		})
	}
}
