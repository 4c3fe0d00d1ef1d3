package stream

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rag4all/backend/internal/config"
	chatmodel "github.com/rag4all/backend/internal/model/chat"
	"github.com/rag4all/backend/internal/model/settings"
	chatservice "github.com/rag4all/backend/internal/service/chat"
	"github.com/rag4all/backend/internal/service/llm"
	"github.com/rag4all/backend/internal/store/memory"
)

type fakeClient struct {
	deltas []string
}

func (f *fakeClient) Complete(_ context.Context, _ llm.CompletionRequest) (string, error) {
	return strings.Join(f.deltas, ""), nil
}

func (f *fakeClient) Stream(_ context.Context, _ llm.CompletionRequest, onDelta func(string) error) (string, error) {
	var full strings.Builder
	for _, delta := range f.deltas {
		full.WriteString(delta)
		if onDelta != nil {
			if err := onDelta(delta); err != nil {
				return "", err
			}
		}
	}
	return full.String(), nil
}

func setup(t *testing.T, deltas []string) (*Handler, *chatservice.Service, string) {
	t.Helper()

	chatSvc := chatservice.NewService(memory.New(), settings.Default())
	cfg := config.LLMConfig{APIKey: "test", StreamOutput: true, HistoryLimit: 10}
	llmSvc := llm.NewService(&fakeClient{deltas: deltas}, cfg)

	session, err := chatSvc.CreateSession(context.Background(), "stream")
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	return New(llmSvc, chatSvc), chatSvc, session.ID
}

func decodeFrames(t *testing.T, body string) []StreamResponse {
	t.Helper()

	var frames []StreamResponse
	for _, block := range strings.Split(body, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		payload := strings.TrimPrefix(block, "data: ")

		var frame StreamResponse
		if err := json.Unmarshal([]byte(payload), &frame); err != nil {
			t.Fatalf("failed to decode frame %q: %v", payload, err)
		}
		frames = append(frames, frame)
	}
	return frames
}

func TestStreamEventSequence(t *testing.T) {
	handler, chatSvc, sessionID := setup(t, []string{"Hi ", "there"})

	resp := httptest.NewRecorder()
	if err := handler.HandleStreamRequest(context.Background(), resp, sessionID, "Hello"); err != nil {
		t.Fatalf("HandleStreamRequest err: %v", err)
	}

	if ct := resp.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type: %q", ct)
	}

	frames := decodeFrames(t, resp.Body.String())
	events := make([]string, 0, len(frames))
	for _, frame := range frames {
		events = append(events, frame.Event)
	}

	want := []string{"start", "delta", "delta", "message", "end"}
	if len(events) != len(want) {
		t.Fatalf("expected events %v, got %v", want, events)
	}
	for i, event := range want {
		if events[i] != event {
			t.Fatalf("event %d: got %q want %q (all: %v)", i, events[i], event, events)
		}
	}

	if frames[1].Content != "Hi " || frames[2].Content != "there" {
		t.Fatalf("unexpected delta contents: %q, %q", frames[1].Content, frames[2].Content)
	}
	if frames[3].Content != "Hi there" {
		t.Fatalf("message frame must carry the full reply, got %q", frames[3].Content)
	}
	if !frames[4].Finished {
		t.Fatal("end frame must be marked finished")
	}

	transcript, err := chatSvc.Transcript(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("Transcript err: %v", err)
	}
	if len(transcript) != 2 {
		t.Fatalf("expected user + assistant on transcript, got %d", len(transcript))
	}
	if transcript[0].Role != chatmodel.RoleUser || transcript[0].Content != "Hello" {
		t.Fatalf("unexpected user message: %+v", transcript[0])
	}
	if transcript[1].Role != chatmodel.RoleAssistant || transcript[1].Content != "Hi there" {
		t.Fatalf("unexpected assistant message: %+v", transcript[1])
	}
}

func TestStreamSkipsDuplicateUserTurn(t *testing.T) {
	handler, chatSvc, sessionID := setup(t, []string{"ok"})
	ctx := context.Background()

	// The client already persisted the user turn via REST.
	if _, err := chatSvc.AppendMessage(ctx, sessionID, chatmodel.RoleUser, "Hello"); err != nil {
		t.Fatalf("AppendMessage err: %v", err)
	}

	resp := httptest.NewRecorder()
	if err := handler.HandleStreamRequest(ctx, resp, sessionID, "Hello"); err != nil {
		t.Fatalf("HandleStreamRequest err: %v", err)
	}

	transcript, err := chatSvc.Transcript(ctx, sessionID)
	if err != nil {
		t.Fatalf("Transcript err: %v", err)
	}
	if len(transcript) != 2 {
		t.Fatalf("user turn must not be duplicated, got %d messages", len(transcript))
	}
}

func TestStreamUnknownSession(t *testing.T) {
	handler, _, _ := setup(t, []string{"ok"})

	resp := httptest.NewRecorder()
	if err := handler.HandleStreamRequest(context.Background(), resp, "missing", "Hello"); err == nil {
		t.Fatal("expected error for unknown session")
	}

	frames := decodeFrames(t, resp.Body.String())
	if len(frames) != 1 || frames[0].Event != "error" {
		t.Fatalf("expected a single error frame, got %+v", frames)
	}
}
