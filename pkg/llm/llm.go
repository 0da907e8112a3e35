// Package llm is the text-generation collaborator boundary. Generation
// failures propagate as turn aborts; nothing in this package retries.
package llm

import (
	"context"

	"github.com/taepop/chingoo-sub000/pkg/persona"
)

// Turn is one prior exchange included in the generation context.
type Turn struct {
	Role    string // user | assistant
	Content string
}

// Request carries everything the generator needs for one reply.
type Request struct {
	Pipeline        string
	Style           persona.StableStyleParams
	History         []Turn
	UserMessage     string
	MemorySnippets  []string
	CrisisFlow      bool
	RelationshipTag string // stage name, loosens or tightens tone
}

// Generator produces the reply draft. May fail (network, quota); the caller
// must abort the turn before any state mutation.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
	// RewriteForQuality asks for one regenerated reply that avoids the named
	// quality violations. Called at most once per turn.
	RewriteForQuality(ctx context.Context, draft string, problems []string) (string, error)
}
