package service

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/stretchr/testify/mock"
	"github.com/vcscsvcscs/medireminder/internal/audit"
	"github.com/vcscsvcscs/medireminder/internal/repository"
	"go.uber.org/zap"
)

type MockOpenAIClient struct {
	mock.Mock
}

func (m *MockOpenAIClient) Complete(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	args := m.Called(ctx, messages)
	return args.String(0), args.Error(1)
}

type MockTranscriber struct {
	mock.Mock
}

func (m *MockTranscriber) Transcribe(ctx context.Context, audio io.Reader, contentType string) (string, error) {
	args := m.Called(ctx, audio, contentType)
	return args.String(0), args.Error(1)
}

// testClock is a fixed, settable clock
type testClock struct {
	t time.Time
}

func (c *testClock) now() time.Time { return c.t }

func (c *testClock) advance(d time.Duration) { c.t = c.t.Add(d) }

// testEnv bundles services over an in-memory store
type testEnv struct {
	kv          *repository.MemoryKV
	repo        *repository.LedgerRepository
	state       *State
	audit       *audit.Logger
	ai          *MockOpenAIClient
	assistant   *AssistantService
	medications *MedicationService
	clock       *testClock
}

// newTestEnv builds the services. With withAI false the assistant is unconfigured.
func newTestEnv(t *testing.T, withAI bool) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	ctx := context.Background()

	kv := repository.NewMemoryKV()
	repo := repository.NewLedgerRepository(kv, logger)
	state := NewState(ctx, repo, logger)
	auditLogger := audit.NewLogger(repo, logger)

	env := &testEnv{
		kv:    kv,
		repo:  repo,
		state: state,
		audit: auditLogger,
		clock: &testClock{t: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)},
	}

	if withAI {
		env.ai = new(MockOpenAIClient)
		env.assistant = NewAssistantService(env.ai, nil, nil, "es", time.Second, logger)
	} else {
		env.assistant = NewAssistantService(nil, nil, nil, "es", time.Second, logger)
	}

	env.medications = NewMedicationService(state, env.assistant, auditLogger, nil, logger)
	env.medications.now = env.clock.now
	ids := 0
	env.medications.newID = func() string {
		ids++
		return fmt.Sprintf("id-%d", ids)
	}
	env.medications.color = func() string { return Palette[0] }
	return env
}
