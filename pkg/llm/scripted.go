package llm

import (
	"context"
	"errors"
)

// ErrNoScript fires when a Scripted generator runs out of replies.
var ErrNoScript = errors.New("llm: no scripted reply left")

// Scripted replays canned responses in order. Used in tests and the REPL's
// offline mode.
type Scripted struct {
	Replies  []string
	Rewrites []string
	Err      error

	replyIdx   int
	rewriteIdx int
	Requests   []Request
}

func (s *Scripted) Generate(_ context.Context, req Request) (string, error) {
	s.Requests = append(s.Requests, req)
	if s.Err != nil {
		return "", s.Err
	}
	if s.replyIdx >= len(s.Replies) {
		return "", ErrNoScript
	}
	reply := s.Replies[s.replyIdx]
	s.replyIdx++
	return reply, nil
}

func (s *Scripted) RewriteForQuality(_ context.Context, _ string, _ []string) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	if s.rewriteIdx >= len(s.Rewrites) {
		return "", ErrNoScript
	}
	out := s.Rewrites[s.rewriteIdx]
	s.rewriteIdx++
	return out, nil
}
