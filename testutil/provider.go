package testutil

import (
	"context"
	"sync"

	"github.com/BaSui01/teamflow/reasoning"
	"github.com/BaSui01/teamflow/types"
)

// EchoProvider answers every completion with the last message echoed back.
// Handy for API-level tests that only care about plumbing, not content.
type EchoProvider struct {
	// Prefix prepended to the echoed content. Defaults to "echo: ".
	Prefix string
}

func (p EchoProvider) Name() string { return "echo" }

func (p EchoProvider) Completion(ctx context.Context, req *reasoning.ChatRequest) (*reasoning.ChatResponse, error) {
	prefix := p.Prefix
	if prefix == "" {
		prefix = "echo: "
	}
	last := req.Messages[len(req.Messages)-1]
	return &reasoning.ChatResponse{
		Content:      prefix + last.Content,
		FinishReason: "stop",
		Usage:        types.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}, nil
}

// ScriptedProvider replays canned completions in order, repeating the last
// one when the script runs out, and records every request it sees. Safe for
// concurrent use.
type ScriptedProvider struct {
	mu        sync.Mutex
	Responses []*reasoning.ChatResponse
	Err       error
	requests  []*reasoning.ChatRequest
}

func (p *ScriptedProvider) Name() string { return "scripted" }

func (p *ScriptedProvider) Completion(ctx context.Context, req *reasoning.ChatRequest) (*reasoning.ChatResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if p.Err != nil {
		return nil, p.Err
	}
	resp := p.Responses[0]
	if len(p.Responses) > 1 {
		p.Responses = p.Responses[1:]
	}
	return resp, nil
}

// Requests returns a snapshot of the recorded requests.
func (p *ScriptedProvider) Requests() []*reasoning.ChatRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*reasoning.ChatRequest, len(p.requests))
	copy(out, p.requests)
	return out
}
