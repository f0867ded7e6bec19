package agent

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

type stubSession struct {
	delay  time.Duration
	result *InvokeResult
	err    error
}

func (s *stubSession) Invoke(ctx context.Context, req InvokeRequest) (*InvokeResult, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.result, s.err
}

func TestWithTimeoutPassesThrough(t *testing.T) {
	want := &InvokeResult{Success: true, Summary: "ok"}
	sess := WithTimeout(&stubSession{result: want}, time.Second)

	got, err := sess.Invoke(context.Background(), InvokeRequest{TaskID: "T1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Errorf("expected result passed through, got %+v", got)
	}
}

func TestWithTimeoutExpires(t *testing.T) {
	sess := WithTimeout(&stubSession{delay: time.Second}, 10*time.Millisecond)

	_, err := sess.Invoke(context.Background(), InvokeRequest{TaskID: "T1"})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded in chain, got %v", err)
	}
}

func TestWithTimeoutZeroIsNoop(t *testing.T) {
	inner := &stubSession{result: &InvokeResult{Success: true}}
	if got := WithTimeout(inner, 0); got != Session(inner) {
		t.Error("expected zero timeout to return the inner session")
	}
}

func TestCommandSessionInvoke(t *testing.T) {
	sess := NewCommandSession("sh", "-c",
		`cat >/dev/null; printf '{"success":true,"files_modified":["a.go"],"summary":"done by %s","agent_session_id":"w-1"}' "$STAGEHAND_AGENT_TYPE"`)

	result, err := sess.Invoke(context.Background(), InvokeRequest{
		AgentType:              "builder",
		TaskID:                 "T1",
		Prompt:                 "do the thing",
		OrchestrationSessionID: "sess-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success || result.Summary != "done by builder" {
		t.Errorf("unexpected result: %+v", result)
	}
	if result.AgentSessionID != "w-1" {
		t.Errorf("expected worker-supplied agent session id, got %q", result.AgentSessionID)
	}
}

func TestCommandSessionFillsAgentSessionID(t *testing.T) {
	sess := NewCommandSession("sh", "-c", `cat >/dev/null; printf '{"success":true,"summary":"ok"}'`)

	result, err := sess.Invoke(context.Background(), InvokeRequest{TaskID: "T1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.AgentSessionID == "" {
		t.Error("expected a generated agent session id")
	}
}

func TestCommandSessionResume(t *testing.T) {
	sess := NewCommandSession("sh", "-c",
		`cat >/dev/null; printf '{"success":true,"summary":"resumed %s"}' "$STAGEHAND_RESUME_AGENT_SESSION_ID"`)

	result, err := sess.Resume(context.Background(), "w-7", "continue the task")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success || result.Summary != "resumed w-7" {
		t.Errorf("unexpected result: %+v", result)
	}
	if result.AgentSessionID != "w-7" {
		t.Errorf("expected prior agent session id carried over, got %q", result.AgentSessionID)
	}
}

func TestCommandSessionFailure(t *testing.T) {
	sess := NewCommandSession("sh", "-c", `echo broken >&2; exit 3`)

	_, err := sess.Invoke(context.Background(), InvokeRequest{TaskID: "T1"})
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}
}

func TestCommandSessionCancellation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	sess := NewCommandSession("sleep", "5")
	_, err := sess.Invoke(ctx, InvokeRequest{TaskID: "T1"})
	if err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestParseWorkerReport(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		wantSummary string
		wantFiles   []string
	}{
		{
			name:        "trailing files line",
			text:        "Implemented the parser.\nFILES: parser.go, parser_test.go",
			wantSummary: "Implemented the parser.",
			wantFiles:   []string{"parser.go", "parser_test.go"},
		},
		{
			name:        "empty files list",
			text:        "Nothing to change.\nFILES:",
			wantSummary: "Nothing to change.",
		},
		{
			name:        "no files line",
			text:        "Just a summary.",
			wantSummary: "Just a summary.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary, files := parseWorkerReport(tt.text)
			if summary != tt.wantSummary {
				t.Errorf("summary = %q, want %q", summary, tt.wantSummary)
			}
			if !reflect.DeepEqual(files, tt.wantFiles) {
				t.Errorf("files = %v, want %v", files, tt.wantFiles)
			}
		})
	}
}
