package services

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// textGenerator is the slice of GeminiService the session layer needs.
type textGenerator interface {
	Generate(ctx context.Context, contents []geminiContent) (string, error)
}

// ChatSession holds the remote model's turn history for exactly one client
// session. Submits for the same session are strictly serialized by the
// mutex; a failed submit does not advance the history.
type ChatSession struct {
	model textGenerator

	initOnce sync.Once
	initErr  error

	// lastUsed holds unix nanos and is read by the eviction janitor, which
	// must never wait on mu: mu is held for the whole model call in submit.
	lastUsed atomic.Int64

	mu      sync.Mutex
	history []geminiContent
}

// init establishes the persona as the first turn of the conversation. The
// reply is discarded but both sides stay in the history so the persona keeps
// grounding later turns.
func (s *ChatSession) init(ctx context.Context) error {
	s.initOnce.Do(func() {
		_, s.initErr = s.submit(ctx, SystemPersona)
	})
	return s.initErr
}

// Submit sends one prompt within this session's conversation and returns the
// model's reply.
func (s *ChatSession) Submit(ctx context.Context, prompt string) (string, error) {
	return s.submit(ctx, prompt)
}

func (s *ChatSession) submit(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	contents := make([]geminiContent, 0, len(s.history)+1)
	contents = append(contents, s.history...)
	contents = append(contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: prompt}}})

	reply, err := s.model.Generate(ctx, contents)
	if err != nil {
		return "", err
	}

	s.history = append(contents, geminiContent{Role: "model", Parts: []geminiPart{{Text: reply}}})
	s.touch()
	return reply, nil
}

func (s *ChatSession) touch() {
	s.lastUsed.Store(time.Now().UnixNano())
}

func (s *ChatSession) idleSince() time.Time {
	return time.Unix(0, s.lastUsed.Load())
}

// SessionRegistry maps client session_ids to their ChatSession, creating
// them lazily on first use and evicting sessions idle longer than the
// configured TTL. Different sessions proceed fully in parallel.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*ChatSession
	model    textGenerator
	idleTTL  time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

func NewSessionRegistry(model textGenerator, idleTTL time.Duration) *SessionRegistry {
	r := &SessionRegistry{
		sessions: make(map[string]*ChatSession),
		model:    model,
		idleTTL:  idleTTL,
		stop:     make(chan struct{}),
	}
	if idleTTL > 0 {
		go r.evictLoop()
	}
	return r
}

// Get returns the live session for sessionID, creating and initializing it
// on first use. Initialization happens outside the registry lock so a slow
// model call never blocks other sessions.
func (r *SessionRegistry) Get(ctx context.Context, sessionID string) (*ChatSession, error) {
	r.mu.Lock()
	session, ok := r.sessions[sessionID]
	if !ok {
		session = &ChatSession{model: r.model}
		session.touch()
		r.sessions[sessionID] = session
	}
	r.mu.Unlock()

	if err := session.init(ctx); err != nil {
		r.removeIf(sessionID, session)
		return nil, err
	}
	return session, nil
}

// Remove drops the live session so the model's memory of it is gone. The
// next turn for the same sessionID starts a fresh conversation.
func (r *SessionRegistry) Remove(sessionID string) {
	r.mu.Lock()
	delete(r.sessions, sessionID)
	r.mu.Unlock()
}

// removeIf drops the mapping only while it still points at session, so
// cleanup after a failed init never evicts a fresh replacement that a
// concurrent Get has already installed under the same id.
func (r *SessionRegistry) removeIf(sessionID string, session *ChatSession) {
	r.mu.Lock()
	if r.sessions[sessionID] == session {
		delete(r.sessions, sessionID)
	}
	r.mu.Unlock()
}

// Close stops the eviction janitor.
func (r *SessionRegistry) Close() {
	r.stopOnce.Do(func() { close(r.stop) })
}

func (r *SessionRegistry) evictLoop() {
	interval := r.idleTTL / 2
	if interval > time.Minute {
		interval = time.Minute
	}
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.evictIdle(time.Now())
		}
	}
}

func (r *SessionRegistry) evictIdle(now time.Time) {
	r.mu.Lock()
	var expired []string
	for id, session := range r.sessions {
		if now.Sub(session.idleSince()) > r.idleTTL {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	if len(expired) > 0 {
		log.Printf("Evicted %d idle chat sessions", len(expired))
	}
}
