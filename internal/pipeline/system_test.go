package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerline/ledgerline/internal/documents"
	"github.com/ledgerline/ledgerline/internal/pipeline"
	"github.com/ledgerline/ledgerline/internal/prompts"
	"github.com/ledgerline/ledgerline/internal/sessions"
	"github.com/ledgerline/ledgerline/pkg/lifecycle"
	"github.com/ledgerline/ledgerline/pkg/pagination"
)

// blobStore is an in-memory stand-in for blob storage.
type blobStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newBlobStore() *blobStore {
	return &blobStore{blobs: make(map[string][]byte)}
}

func (b *blobStore) Start(lc *lifecycle.Coordinator) error { return nil }

func (b *blobStore) Upload(ctx context.Context, key string, reader io.Reader, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.blobs[key] = data
	return nil
}

func (b *blobStore) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, ok := b.blobs[key]
	if !ok {
		return nil, fmt.Errorf("blob not found: %s", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *blobStore) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.blobs, key)
	return nil
}

func (b *blobStore) Exists(ctx context.Context, key string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.blobs[key]
	return ok, nil
}

func testSystem(t *testing.T, fake *fakeInference) pipeline.System {
	t.Helper()

	rt := testRuntime(t, fake)
	blobs := newBlobStore()
	rt.Storage = blobs

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	page := pagination.Config{DefaultPageSize: 20, MaxPageSize: 100}
	docs := documents.New(blobs, logger, page)

	stages := pipeline.DefaultStages()
	engine := pipeline.NewEngine(rt, stages)
	runner := pipeline.NewRunner(context.Background(), engine, logger)

	return pipeline.New(rt, runner, stages, docs, page)
}

// waitForTerminal polls until the session reaches a terminal status.
func waitForTerminal(t *testing.T, sys pipeline.System, id uuid.UUID) *sessions.Session {
	t.Helper()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatal("session never reached a terminal status")
		case <-time.After(10 * time.Millisecond):
		}

		sess, err := sys.Find(context.Background(), id)
		if err != nil {
			t.Fatalf("Find() error = %v", err)
		}
		if sess.Status.Terminal() {
			return sess
		}
	}
}

// resumeWhenIdle retries Resume while the previous run is still deregistering.
func resumeWhenIdle(ctx context.Context, sys pipeline.System, id uuid.UUID) error {
	var err error
	for range 100 {
		if _, err = sys.Resume(ctx, id); !errors.Is(err, pipeline.ErrSessionRunning) {
			return err
		}
		time.Sleep(10 * time.Millisecond)
	}
	return err
}

func TestSystemStartRequiresInvoice(t *testing.T) {
	sys := testSystem(t, newFakeInference())

	cmd := pipeline.StartCommand{Inputs: []pipeline.StartInput{
		{Kind: sessions.InputSpreadsheet, Filename: "payments.txt", Text: "payments only"},
	}}

	if _, err := sys.Start(context.Background(), cmd); !errors.Is(err, pipeline.ErrNoInvoice) {
		t.Errorf("Start() error = %v, want %v", err, pipeline.ErrNoInvoice)
	}
}

func TestSystemStartRejectsEmptyInput(t *testing.T) {
	sys := testSystem(t, newFakeInference())

	cmd := pipeline.StartCommand{Inputs: []pipeline.StartInput{
		{Kind: sessions.InputInvoice, Filename: "invoice.pdf"},
	}}

	if _, err := sys.Start(context.Background(), cmd); !errors.Is(err, documents.ErrInvalidFile) {
		t.Errorf("Start() error = %v, want %v", err, documents.ErrInvalidFile)
	}
}

func TestSystemStartRunsToCompletion(t *testing.T) {
	ctx := context.Background()
	sys := testSystem(t, newFakeInference())

	cmd := pipeline.StartCommand{Inputs: []pipeline.StartInput{
		{
			Kind:     sessions.InputInvoice,
			Filename: "pasted-invoice.txt",
			Text:     "Acme Supply Co INV-1001: consulting $100.00, hosting $250.00",
		},
		{
			Kind:        sessions.InputSpreadsheet,
			Filename:    "payments.csv",
			ContentType: "text/csv",
			Data:        []byte("1,Consulting payment,$100.00\n2,Hosting payment,$250.00\n"),
		},
	}}

	sess, err := sys.Start(ctx, cmd)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// the uploaded spreadsheet has its text extracted at registration
	sheet := sess.State.InputsOfKind(sessions.InputSpreadsheet)
	if len(sheet) != 1 {
		t.Fatalf("spreadsheet inputs = %d, want 1", len(sheet))
	}
	if sheet[0].Text == "" {
		t.Error("spreadsheet text not extracted on upload")
	}
	if sheet[0].StorageKey == "" {
		t.Error("spreadsheet blob not registered")
	}

	final := waitForTerminal(t, sys, sess.ID)
	if final.Status != sessions.StatusCompleted {
		t.Fatalf("Status = %s (stage %s: %s), want %s",
			final.Status, final.FailureStage, final.FailureReason, sessions.StatusCompleted)
	}

	status, err := sys.Status(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if len(status.Stages) != 5 {
		t.Fatalf("stage reports = %d, want 5", len(status.Stages))
	}
	for _, st := range status.Stages {
		if st.Status != string(sessions.StageSuccess) {
			t.Errorf("stage %s status = %s, want success", st.Name, st.Status)
		}
	}

	result, err := sys.Result(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Result() error = %v", err)
	}
	if result.Verdict != "Yes" {
		t.Errorf("Verdict = %s, want Yes", result.Verdict)
	}
	if len(result.Outputs) != 5 {
		t.Errorf("Outputs = %d, want 5", len(result.Outputs))
	}

	trace, err := sys.Trace(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Trace() error = %v", err)
	}
	if len(trace) == 0 {
		t.Error("trace empty after completed run")
	}
}

func TestSystemResultBeforeCompletion(t *testing.T) {
	ctx := context.Background()
	fake := newFakeInference()
	fake.failures[prompts.StageInvoice] = errors.New("provider unavailable")
	sys := testSystem(t, fake)

	sess, err := sys.Start(ctx, pipeline.StartCommand{Inputs: []pipeline.StartInput{
		{Kind: sessions.InputInvoice, Filename: "invoice.txt", Text: "Acme invoice"},
	}})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	final := waitForTerminal(t, sys, sess.ID)
	if final.Status != sessions.StatusFailed {
		t.Fatalf("Status = %s, want %s", final.Status, sessions.StatusFailed)
	}

	if _, err := sys.Result(ctx, sess.ID); !errors.Is(err, sessions.ErrRunNotComplete) {
		t.Errorf("Result() error = %v, want %v", err, sessions.ErrRunNotComplete)
	}

	status, err := sys.Status(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status.FailureStage != string(prompts.StageInvoice) {
		t.Errorf("FailureStage = %s, want %s", status.FailureStage, prompts.StageInvoice)
	}
	if status.Stages[0].Status != string(sessions.StageFailed) {
		t.Errorf("invoice stage status = %s, want failed", status.Stages[0].Status)
	}
}

func TestSystemResumeAfterFailure(t *testing.T) {
	ctx := context.Background()
	fake := newFakeInference()
	fake.failures[prompts.StageReclassify] = errors.New("provider unavailable")
	sys := testSystem(t, fake)

	sess, err := sys.Start(ctx, pipeline.StartCommand{Inputs: []pipeline.StartInput{
		{Kind: sessions.InputInvoice, Filename: "invoice.txt", Text: "Acme invoice"},
	}})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	final := waitForTerminal(t, sys, sess.ID)
	if final.Status != sessions.StatusFailed {
		t.Fatalf("Status = %s, want %s", final.Status, sessions.StatusFailed)
	}

	fake.mu.Lock()
	delete(fake.failures, prompts.StageReclassify)
	fake.mu.Unlock()

	// the runner may deregister the failed run a beat after the final checkpoint
	if err := resumeWhenIdle(ctx, sys, sess.ID); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}

	final = waitForTerminal(t, sys, sess.ID)
	if final.Status != sessions.StatusCompleted {
		t.Fatalf("resumed status = %s, want %s", final.Status, sessions.StatusCompleted)
	}

	// resuming a completed session is rejected
	if _, err := sys.Resume(ctx, sess.ID); !errors.Is(err, pipeline.ErrSessionComplete) {
		t.Errorf("Resume() error = %v, want %v", err, pipeline.ErrSessionComplete)
	}
}

func TestSystemCancel(t *testing.T) {
	ctx := context.Background()
	sys := testSystem(t, newFakeInference())

	// unknown session
	if err := sys.Cancel(ctx, uuid.New()); !errors.Is(err, sessions.ErrNotFound) {
		t.Errorf("Cancel() error = %v, want %v", err, sessions.ErrNotFound)
	}

	sess, err := sys.Start(ctx, pipeline.StartCommand{Inputs: []pipeline.StartInput{
		{Kind: sessions.InputInvoice, Filename: "invoice.txt", Text: "Acme invoice"},
	}})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	waitForTerminal(t, sys, sess.ID)

	// once the run deregisters there is nothing left to cancel
	deadline := time.Now().Add(2 * time.Second)
	for {
		err := sys.Cancel(ctx, sess.ID)
		if errors.Is(err, pipeline.ErrNotRunning) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Cancel() error = %v, want %v", err, pipeline.ErrNotRunning)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
