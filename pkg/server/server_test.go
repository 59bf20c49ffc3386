package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"

	"github.com/concordhq/concord/pkg/model"
	"github.com/concordhq/concord/pkg/server"
	"github.com/concordhq/concord/pkg/usecase/reply"
)

type mockAnalyzer struct {
	analyzeFunc func(ctx context.Context, message string, history []model.ConversationTurn) (*model.AlignmentResult, error)
	calls       int
}

func (m *mockAnalyzer) Analyze(ctx context.Context, message string, history []model.ConversationTurn) (*model.AlignmentResult, error) {
	m.calls++
	return m.analyzeFunc(ctx, message, history)
}

type mockReplier struct {
	generateFunc func(ctx context.Context, message string, history []model.ConversationTurn) (string, error)
}

func (m *mockReplier) Generate(ctx context.Context, message string, history []model.ConversationTurn) (string, error) {
	return m.generateFunc(ctx, message, history)
}

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(ctx context.Context) error { return m.err }

func alignedAnalyzer() *mockAnalyzer {
	return &mockAnalyzer{
		analyzeFunc: func(ctx context.Context, message string, history []model.ConversationTurn) (*model.AlignmentResult, error) {
			return model.AlignedResult(0.42), nil
		},
	}
}

func echoReplier() *mockReplier {
	return &mockReplier{
		generateFunc: func(ctx context.Context, message string, history []model.ConversationTurn) (string, error) {
			return "sounds good", nil
		},
	}
}

func newTestServer(t *testing.T, analyzer server.Analyzer, replier *mockReplier, pinger *mockPinger) http.Handler {
	t.Helper()
	var gen reply.Generator
	if replier != nil {
		gen = replier
	}

	srv, err := server.New(analyzer, gen, pinger, server.Config{})
	gt.NoError(t, err)
	return srv.Handler()
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	gt.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		h := newTestServer(t, alignedAnalyzer(), echoReplier(), &mockPinger{})

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		gt.Equal(t, rec.Code, http.StatusOK)
		gt.S(t, rec.Body.String()).Contains(`"status":"healthy"`)
	})

	t.Run("database unreachable", func(t *testing.T) {
		h := newTestServer(t, alignedAnalyzer(), echoReplier(), &mockPinger{err: errors.New("refused")})

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		gt.Equal(t, rec.Code, http.StatusServiceUnavailable)
		gt.S(t, rec.Body.String()).Contains(`"status":"unhealthy"`)
	})
}

func TestAlignmentEndpoint(t *testing.T) {
	t.Run("aligned", func(t *testing.T) {
		h := newTestServer(t, alignedAnalyzer(), echoReplier(), &mockPinger{})

		rec := postJSON(t, h, "/api/v1/alignment", server.AlignmentRequest{Message: "hello"})
		gt.Equal(t, rec.Code, http.StatusOK)

		var result model.AlignmentResult
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		gt.True(t, result.Aligned)
		gt.Equal(t, result.Similarity, 0.42)
	})

	t.Run("misaligned verdict passes through", func(t *testing.T) {
		analyzer := &mockAnalyzer{
			analyzeFunc: func(ctx context.Context, message string, history []model.ConversationTurn) (*model.AlignmentResult, error) {
				issue := "conflicts with the pivot"
				decision := "Mobile app redesign is on hold indefinitely"
				title := "Q1 All-Hands: Strategic Pivot"
				date := model.NewDate(2025, 1, 15)
				sev := model.SeverityHigh
				return &model.AlignmentResult{
					Aligned:          false,
					Issue:            &issue,
					RelevantDecision: &decision,
					MeetingTitle:     &title,
					MeetingDate:      &date,
					Similarity:       0.91,
					Severity:         &sev,
				}, nil
			},
		}
		h := newTestServer(t, analyzer, echoReplier(), &mockPinger{})

		rec := postJSON(t, h, "/api/v1/alignment", server.AlignmentRequest{Message: "prioritize mobile"})
		gt.Equal(t, rec.Code, http.StatusOK)
		gt.S(t, rec.Body.String()).Contains(`"aligned":false`)
		gt.S(t, rec.Body.String()).Contains(`"meeting_date":"2025-01-15"`)
		gt.S(t, rec.Body.String()).Contains(`"severity":"high"`)
	})

	t.Run("missing message", func(t *testing.T) {
		h := newTestServer(t, alignedAnalyzer(), echoReplier(), &mockPinger{})

		rec := postJSON(t, h, "/api/v1/alignment", server.AlignmentRequest{})
		gt.Equal(t, rec.Code, http.StatusBadRequest)
	})

	t.Run("pipeline failure maps to 502 with kind", func(t *testing.T) {
		analyzer := &mockAnalyzer{
			analyzeFunc: func(ctx context.Context, message string, history []model.ConversationTurn) (*model.AlignmentResult, error) {
				return nil, goerr.Wrap(model.ErrEmbeddingService, "boom")
			},
		}
		h := newTestServer(t, analyzer, echoReplier(), &mockPinger{})

		rec := postJSON(t, h, "/api/v1/alignment", server.AlignmentRequest{Message: "hello"})
		gt.Equal(t, rec.Code, http.StatusBadGateway)
		gt.S(t, rec.Body.String()).Contains("embedding_service_error")
	})
}

func TestChatEndpoint(t *testing.T) {
	t.Run("reply and verdict together", func(t *testing.T) {
		h := newTestServer(t, alignedAnalyzer(), echoReplier(), &mockPinger{})

		rec := postJSON(t, h, "/api/v1/chat", server.ChatRequest{Message: "hello"})
		gt.Equal(t, rec.Code, http.StatusOK)

		var resp server.ChatResponse
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		gt.Equal(t, resp.Reply, "sounds good")
		gt.NotNil(t, resp.Alignment)
		gt.True(t, resp.Alignment.Aligned)
		gt.Equal(t, resp.State, server.StateIdle)
		gt.False(t, resp.Resolved)
	})

	t.Run("session state carries across turns", func(t *testing.T) {
		verdicts := []bool{false, true}
		i := 0
		analyzer := &mockAnalyzer{
			analyzeFunc: func(ctx context.Context, message string, history []model.ConversationTurn) (*model.AlignmentResult, error) {
				aligned := verdicts[i]
				i++
				if aligned {
					return model.AlignedResult(0.2), nil
				}
				issue := "off the agreed plan"
				decision := "decision"
				title := "meeting"
				date := model.NewDate(2025, 1, 15)
				sev := model.SeverityMedium
				return &model.AlignmentResult{
					Aligned: false, Issue: &issue, RelevantDecision: &decision,
					MeetingTitle: &title, MeetingDate: &date, Similarity: 0.9, Severity: &sev,
				}, nil
			},
		}
		h := newTestServer(t, analyzer, echoReplier(), &mockPinger{})

		rec := postJSON(t, h, "/api/v1/chat", server.ChatRequest{Message: "first"})
		gt.Equal(t, rec.Code, http.StatusOK)
		var first server.ChatResponse
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
		gt.Equal(t, first.State, server.StateMisaligned)

		rec = postJSON(t, h, "/api/v1/chat", server.ChatRequest{
			SessionID: &first.SessionID,
			Message:   "second",
		})
		gt.Equal(t, rec.Code, http.StatusOK)
		var second server.ChatResponse
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
		gt.Equal(t, second.SessionID, first.SessionID)
		gt.Equal(t, second.State, server.StateAligned)
		gt.True(t, second.Resolved)
	})

	t.Run("alignment failure degrades to skipped check", func(t *testing.T) {
		analyzer := &mockAnalyzer{
			analyzeFunc: func(ctx context.Context, message string, history []model.ConversationTurn) (*model.AlignmentResult, error) {
				return nil, goerr.Wrap(model.ErrRetrieval, "index down")
			},
		}
		h := newTestServer(t, analyzer, echoReplier(), &mockPinger{})

		rec := postJSON(t, h, "/api/v1/chat", server.ChatRequest{Message: "hello"})
		gt.Equal(t, rec.Code, http.StatusOK)

		var resp server.ChatResponse
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		gt.Equal(t, resp.Reply, "sounds good")
		gt.True(t, resp.Alignment.Aligned)
		gt.Equal(t, resp.Alignment.Similarity, 0.0)
	})

	t.Run("reply failure is an error", func(t *testing.T) {
		replier := &mockReplier{
			generateFunc: func(ctx context.Context, message string, history []model.ConversationTurn) (string, error) {
				return "", errors.New("unavailable")
			},
		}
		h := newTestServer(t, alignedAnalyzer(), replier, &mockPinger{})

		rec := postJSON(t, h, "/api/v1/chat", server.ChatRequest{Message: "hello"})
		gt.Equal(t, rec.Code, http.StatusBadGateway)
	})

	t.Run("chat without a replier is not implemented", func(t *testing.T) {
		h := newTestServer(t, alignedAnalyzer(), nil, &mockPinger{})

		rec := postJSON(t, h, "/api/v1/chat", server.ChatRequest{Message: "hello"})
		gt.Equal(t, rec.Code, http.StatusNotImplemented)
	})
}
