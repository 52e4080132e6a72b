package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/EmonKarmaker/ai-support-system/internal/adapter/cache"
	"github.com/EmonKarmaker/ai-support-system/internal/domain"
	"github.com/EmonKarmaker/ai-support-system/internal/port"
)

var errMalformedEmbedding = errors.New("embedding provider returned no vector")

// EngineOptions holds the engine-level settings that are not owned by a
// single pipeline stage.
type EngineOptions struct {
	TopN            int
	MaxSearchK      int
	MaxMessageChars int
	QuestionWeight  float64 // share of the question in an entry's embedding
	TranscriptTurns int
	AskForContact   bool
	ContactPrompt   string
	NoAnswerText    string
	IngestBatchSize int
}

// EngineComponents are the collaborators an Engine is wired from.
type EngineComponents struct {
	Embedder   port.Embedder
	Store      port.VectorStore
	Cache      *cache.QueryCache // optional
	Retriever  *Retriever
	Assembler  *ContextAssembler
	Generator  *Generator
	Scorer     *ConfidenceScorer
	Policy     *EscalationPolicy
	Sessions   port.SessionStore
	Dispatcher *EscalationDispatcher
}

// Engine answers support questions from the knowledge base.
type Engine struct {
	embedder   port.Embedder
	store      port.VectorStore
	cache      *cache.QueryCache
	retriever  *Retriever
	assembler  *ContextAssembler
	generator  *Generator
	scorer     *ConfidenceScorer
	policy     *EscalationPolicy
	sessions   port.SessionStore
	dispatcher *EscalationDispatcher
	opts       EngineOptions
	logger     *zap.Logger
	now        func() time.Time
}

// NewEngine wires an engine. Every component except the cache is required.
func NewEngine(c EngineComponents, opts EngineOptions, logger *zap.Logger) (*Engine, error) {
	var missing []string
	for name, ok := range map[string]bool{
		"embedder":   c.Embedder != nil,
		"store":      c.Store != nil,
		"retriever":  c.Retriever != nil,
		"assembler":  c.Assembler != nil,
		"generator":  c.Generator != nil,
		"scorer":     c.Scorer != nil,
		"policy":     c.Policy != nil,
		"sessions":   c.Sessions != nil,
		"dispatcher": c.Dispatcher != nil,
	} {
		if !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("engine is missing components: %s", strings.Join(missing, ", "))
	}

	if opts.TopN <= 0 {
		opts.TopN = 3
	}
	if opts.MaxSearchK <= 0 {
		opts.MaxSearchK = 50
	}
	if opts.MaxMessageChars <= 0 {
		opts.MaxMessageChars = 4000
	}
	if opts.TranscriptTurns <= 0 {
		opts.TranscriptTurns = 10
	}
	if opts.IngestBatchSize <= 0 {
		opts.IngestBatchSize = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		embedder:   c.Embedder,
		store:      c.Store,
		cache:      c.Cache,
		retriever:  c.Retriever,
		assembler:  c.Assembler,
		generator:  c.Generator,
		scorer:     c.Scorer,
		policy:     c.Policy,
		sessions:   c.Sessions,
		dispatcher: c.Dispatcher,
		opts:       opts,
		logger:     logger,
		now:        time.Now,
	}, nil
}

// RespondRequest is one user message.
type RespondRequest struct {
	Message   string
	SessionID string // empty starts a new session
	Category  string // optional filter
	UserEmail string
	UserName  string
}

// Respond answers one user message. Retrieval failure without a fallback is
// the only failure surfaced to the caller; generation failure degrades to the
// best matching stored answer. Nothing is recorded in the session when ctx
// ends before the answer is ready.
func (e *Engine) Respond(ctx context.Context, req RespondRequest) (*domain.AnswerResult, error) {
	const op = "respond"

	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, domain.InvalidInput(op, "message is empty")
	}
	if n := utf8.RuneCountInString(message); n > e.opts.MaxMessageChars {
		return nil, domain.InvalidInput(op, "message is %d characters, limit is %d", n, e.opts.MaxMessageChars)
	}
	category, err := domain.ParseCategoryFilter(req.Category)
	if err != nil {
		return nil, err
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	session := e.sessions.Get(ctx, sessionID)

	retrieval, err := e.retriever.Retrieve(ctx, message, category, e.opts.TopN)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if domain.KindOf(err) == domain.KindVectorStoreUnavailable {
			e.logger.Error("retrieval failed", zap.String("session_id", sessionID), zap.Error(err))
			return nil, domain.ServiceUnavailable(op, err)
		}
		return nil, err
	}
	// Only entries that fit the context budget count as sources.
	contextBlock, candidates := e.assembler.Assemble(retrieval.Candidates)
	if dropped := len(retrieval.Candidates) - len(candidates); dropped > 0 {
		e.logger.Debug("context budget dropped candidates",
			zap.String("session_id", sessionID), zap.Int("dropped", dropped))
	}
	text, genErr := e.generator.Generate(ctx, message, contextBlock, session.Turns)
	if genErr != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		text = e.fallbackAnswer(candidates)
		e.logger.Warn("serving fallback answer",
			zap.String("session_id", sessionID),
			zap.Int("candidates", len(candidates)),
			zap.Error(genErr))
	}

	confidence := e.scorer.Score(candidates, genErr == nil)
	decision := e.policy.Decide(confidence, message, session)

	if decision.NeedsEscalation && e.opts.AskForContact && strings.TrimSpace(req.UserEmail) == "" {
		text += e.opts.ContactPrompt
	}

	// Abandoned requests leave the session untouched.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := e.now()
	turns := []domain.SessionTurn{
		{Role: domain.RoleUser, Text: message, Timestamp: now},
		{Role: domain.RoleAssistant, Text: text, Timestamp: now},
	}
	e.sessions.Append(ctx, sessionID, turns...)

	switch {
	case decision.NeedsEscalation:
		e.sessions.SetEscalated(ctx, sessionID, true)
	case decision.Resolved && session.Escalated:
		e.sessions.SetEscalated(ctx, sessionID, false)
	}

	if decision.NeedsEscalation && (!session.Escalated || decision.Explicit) {
		transcript := append(append([]domain.SessionTurn(nil), session.Turns...), turns...)
		e.dispatcher.Submit(domain.EscalationEvent{
			TicketID:      newTicketID(now),
			SessionID:     sessionID,
			Transcript:    formatTranscript(transcript, e.opts.TranscriptTurns),
			UserContact:   strings.TrimSpace(req.UserEmail),
			UserName:      userName(req.UserName),
			Reason:        decision.Reason,
			OriginalQuery: message,
			Priority:      "normal",
			CreatedAt:     now,
		})
	}

	sources := make([]string, len(candidates))
	for i, c := range candidates {
		sources[i] = c.Entry.Question
	}

	e.logger.Debug("responded",
		zap.String("session_id", sessionID),
		zap.Int("sources", len(sources)),
		zap.Float64("confidence", confidence),
		zap.Bool("lexical", retrieval.Lexical),
		zap.Bool("cached", retrieval.Cached),
		zap.Bool("fallback", genErr != nil),
		zap.Bool("escalate", decision.NeedsEscalation))

	return &domain.AnswerResult{
		Text:             text,
		Sources:          sources,
		Confidence:       confidence,
		NeedsEscalation:  decision.NeedsEscalation,
		EscalationReason: string(decision.Reason),
		SessionID:        sessionID,
		UsedFallback:     genErr != nil,
		ContextUsed:      len(candidates) > 0,
	}, nil
}

func (e *Engine) fallbackAnswer(candidates []domain.RetrievedCandidate) string {
	if len(candidates) == 0 {
		return e.opts.NoAnswerText
	}
	return candidates[0].Entry.Answer
}

// Search runs retrieval only. topK 0 uses the configured default.
func (e *Engine) Search(ctx context.Context, query, category string, topK int) ([]domain.RetrievedCandidate, error) {
	const op = "search"

	if strings.TrimSpace(query) == "" {
		return nil, domain.InvalidInput(op, "query is empty")
	}
	if topK < 0 {
		return nil, domain.InvalidInput(op, "top_k must not be negative")
	}
	if topK > e.opts.MaxSearchK {
		return nil, domain.InvalidInput(op, "top_k must be at most %d", e.opts.MaxSearchK)
	}
	filter, err := domain.ParseCategoryFilter(category)
	if err != nil {
		return nil, err
	}

	retrieval, err := e.retriever.Retrieve(ctx, query, filter, topK)
	if err != nil {
		return nil, err
	}
	return retrieval.Candidates, nil
}

// Stats reports knowledge base contents and live session count.
func (e *Engine) Stats(ctx context.Context) (domain.KnowledgeStats, error) {
	count, err := e.store.Count(ctx)
	if err != nil {
		return domain.KnowledgeStats{}, domain.VectorStoreUnavailable("stats", err)
	}
	counts, err := e.store.CategoryCounts(ctx)
	if err != nil {
		return domain.KnowledgeStats{}, domain.VectorStoreUnavailable("stats", err)
	}
	return domain.KnowledgeStats{
		EntryCount:     count,
		CategoryCounts: counts,
		ActiveSessions: e.sessions.Len(),
	}, nil
}

// Clear removes every knowledge entry.
func (e *Engine) Clear(ctx context.Context) error {
	if err := e.store.Clear(ctx); err != nil {
		return domain.VectorStoreUnavailable("clear", err)
	}
	if e.cache != nil {
		e.cache.Invalidate()
	}
	e.logger.Info("knowledge base cleared")
	return nil
}

// Categories lists the categories entries can be tagged with.
func (e *Engine) Categories() []domain.Category {
	out := make([]domain.Category, 0, len(domain.KnownCategories)+1)
	out = append(out, domain.KnownCategories...)
	return append(out, domain.CategoryGeneral)
}

// Session returns a copy of the session's current state.
func (e *Engine) Session(ctx context.Context, id string) domain.Session {
	return e.sessions.Get(ctx, id)
}

// EscalationRequest is an explicit hand-off submitted by the user.
type EscalationRequest struct {
	SessionID           string `json:"session_id" validate:"required,max=128"`
	UserEmail           string `json:"user_email" validate:"required,email"`
	UserName            string `json:"user_name,omitempty" validate:"max=200"`
	ConversationSummary string `json:"conversation_summary,omitempty" validate:"max=20000"`
	OriginalQuery       string `json:"original_query,omitempty" validate:"max=4000"`
}

// EscalationTicket acknowledges a delivered hand-off.
type EscalationTicket struct {
	TicketID string `json:"ticket_id"`
	Message  string `json:"message"`
}

// Escalate delivers a hand-off synchronously. Unlike automatic escalation,
// delivery failure is reported to the caller.
func (e *Engine) Escalate(ctx context.Context, req EscalationRequest) (*EscalationTicket, error) {
	const op = "escalate"

	req.SessionID = strings.TrimSpace(req.SessionID)
	req.UserEmail = strings.TrimSpace(req.UserEmail)
	if err := validateStruct(op, req); err != nil {
		return nil, err
	}

	session := e.sessions.Get(ctx, req.SessionID)
	transcript := strings.TrimSpace(req.ConversationSummary)
	if transcript == "" {
		transcript = formatTranscript(session.Turns, e.opts.TranscriptTurns)
	}
	query := strings.TrimSpace(req.OriginalQuery)
	if query == "" {
		query = lastUserMessage(session.Turns)
	}

	now := e.now()
	event := domain.EscalationEvent{
		TicketID:      newTicketID(now),
		SessionID:     req.SessionID,
		Transcript:    transcript,
		UserContact:   req.UserEmail,
		UserName:      userName(req.UserName),
		Reason:        domain.ReasonUserSubmitted,
		OriginalQuery: query,
		Priority:      "normal",
		CreatedAt:     now,
	}

	if err := e.dispatcher.Send(ctx, event); err != nil {
		e.logger.Error("escalation delivery failed",
			zap.String("ticket_id", event.TicketID),
			zap.String("session_id", event.SessionID),
			zap.Error(err))
		return nil, domain.NewError(domain.KindEscalationDeliveryFailed, op, "escalation delivery failed", err)
	}
	e.sessions.SetEscalated(ctx, req.SessionID, true)

	return &EscalationTicket{
		TicketID: event.TicketID,
		Message:  fmt.Sprintf("Your request has been submitted. A support agent will contact you at %s shortly.", req.UserEmail),
	}, nil
}

// Close drains pending escalation events.
func (e *Engine) Close(ctx context.Context) error {
	return e.dispatcher.Close(ctx)
}

// newTicketID returns TKT-YYYYMMDD-XXXXXX.
func newTicketID(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("TKT-%s-%s", now.UTC().Format("20060102"), suffix)
}

func formatTranscript(turns []domain.SessionTurn, n int) string {
	if len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	var b strings.Builder
	for i, t := range turns {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strings.ToUpper(string(t.Role)))
		b.WriteString(": ")
		b.WriteString(t.Text)
	}
	return b.String()
}

func lastUserMessage(turns []domain.SessionTurn) string {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == domain.RoleUser {
			return turns[i].Text
		}
	}
	return ""
}

func userName(name string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return "Customer"
}
