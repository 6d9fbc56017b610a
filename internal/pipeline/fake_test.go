package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/ncecere/image_studio/internal/models"
)

type fakeUpstream struct {
	mu sync.Mutex

	chatReply string
	chatErr   error
	imageResp models.ImageResponse
	imageErr  error

	chats     []models.ChatRequest
	edits     []models.ImageEditRequest
	generates []models.ImageRequest
}

func (f *fakeUpstream) Chat(_ context.Context, req models.ChatRequest) (models.ChatResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chats = append(f.chats, req)
	if f.chatErr != nil {
		return models.ChatResponse{}, f.chatErr
	}
	return models.ChatResponse{
		Choices: []models.ChatChoice{{Message: models.ChatMessage{Role: "assistant", Content: f.chatReply}}},
		Usage:   models.Usage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30},
	}, nil
}

func (f *fakeUpstream) Generate(_ context.Context, req models.ImageRequest) (models.ImageResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generates = append(f.generates, req)
	return f.imageResp, f.imageErr
}

func (f *fakeUpstream) Edit(_ context.Context, req models.ImageEditRequest) (models.ImageResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, req)
	return f.imageResp, f.imageErr
}

func (f *fakeUpstream) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.chats) + len(f.edits) + len(f.generates)
}

type recordedCall struct {
	operation string
	status    int
}

type fakeRecorder struct {
	mu     sync.Mutex
	calls  []recordedCall
	tokens map[string]int32
}

func (r *fakeRecorder) RecordUpstream(operation string, status int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, recordedCall{operation: operation, status: status})
}

func (r *fakeRecorder) RecordTokens(operation string, usage models.Usage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tokens == nil {
		r.tokens = make(map[string]int32)
	}
	r.tokens[operation] += usage.TotalTokens
}
