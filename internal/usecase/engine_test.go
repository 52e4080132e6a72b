package usecase

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EmonKarmaker/ai-support-system/internal/adapter/analyzer"
	"github.com/EmonKarmaker/ai-support-system/internal/adapter/cache"
	"github.com/EmonKarmaker/ai-support-system/internal/adapter/embedding"
	"github.com/EmonKarmaker/ai-support-system/internal/adapter/memstore"
	"github.com/EmonKarmaker/ai-support-system/internal/adapter/retriever"
	"github.com/EmonKarmaker/ai-support-system/internal/adapter/session"
	"github.com/EmonKarmaker/ai-support-system/internal/domain"
	"github.com/EmonKarmaker/ai-support-system/internal/port"
)

const (
	testDimension     = 384
	testContactPrompt = "\n\nPlease share your email so our team can reach you."
	testNoAnswer      = "Sorry, I could not answer that."
)

type fixtureConfig struct {
	llm           port.LLM
	queryEmbedder port.Embedder // embedder used for queries, defaults to the ingest embedder
	store         port.VectorStore
	lexical       bool
	seed          bool
	context       *ContextOptions // defaults to an 800/3000 character budget
}

type fixture struct {
	engine   *Engine
	store    *memstore.MemoryVectorStore
	notifier *fakeNotifier
	llm      *fakeLLM
}

var seedEntries = []domain.EntryInput{
	{ID: "ret1", Category: "returns", Title: "How do I return an item?", Content: "Open Orders, select the item and choose Return. Returns are accepted within 30 days of delivery."},
	{ID: "ship1", Category: "shipping", Title: "How long does shipping take?", Content: "Standard shipping takes 3-5 business days. Express shipping arrives in 1-2 business days."},
	{ID: "pay1", Category: "payment", Title: "What payment methods do you accept?", Content: "We accept Visa, Mastercard, PayPal and Apple Pay."},
	{ID: "acct1", Category: "account", Title: "How do I reset my password?", Content: "Click Forgot password on the sign-in page and follow the emailed link."},
	{ID: "war1", Category: "warranty", Title: "Does my laptop have a warranty?", Content: "Every laptop includes a one year limited manufacturer warranty."},
}

func newFixture(t *testing.T, cfg fixtureConfig) *fixture {
	t.Helper()

	f := &fixture{notifier: newFakeNotifier(), store: memstore.NewMemoryVectorStore(testDimension)}

	ctxOpts := ContextOptions{MaxEntryChars: 800, MaxTotalChars: 3000, NoContextMarker: "No relevant knowledge base entries were found."}
	if cfg.context != nil {
		ctxOpts = *cfg.context
	}

	llm := cfg.llm
	if llm == nil {
		f.llm = &fakeLLM{}
		llm = f.llm
	}
	var store port.VectorStore = f.store
	if cfg.store != nil {
		store = cfg.store
	}

	tok := analyzer.NewTokenizer(true)
	hash := embedding.NewHashEmbedder(testDimension)
	queryEmbedder := port.Embedder(hash)
	if cfg.queryEmbedder != nil {
		queryEmbedder = cfg.queryEmbedder
	}
	var lexical *retriever.LexicalRetriever
	if cfg.lexical {
		lexical = retriever.NewLexicalRetriever(tok, 1.2, 0.75, 0.6)
	}
	qc := cache.NewQueryCache(64, time.Minute)

	ret := NewRetriever(queryEmbedder, store, lexical, retriever.NewNearDuplicateFilter(tok, 0.9), qc,
		RetrieveOptions{TopN: 3, OverFetch: 2, MinSimilarity: 0.5, LexicalMinScore: 0.3}, nil)
	gen, err := NewGenerator(llm, testGenerationOptions(), nil)
	require.NoError(t, err)
	dispatcher := NewEscalationDispatcher(f.notifier, DispatcherOptions{Workers: 1, QueueSize: 16}, nil)

	f.engine, err = NewEngine(EngineComponents{
		Embedder:   hash,
		Store:      store,
		Cache:      qc,
		Retriever:  ret,
		Assembler:  NewContextAssembler(ctxOpts),
		Generator:  gen,
		Scorer:     testScorer(),
		Policy:     testPolicy(0.5),
		Sessions:   session.NewMemoryStore(10, time.Hour),
		Dispatcher: dispatcher,
	}, EngineOptions{
		TopN:            3,
		QuestionWeight:  0.8,
		AskForContact:   true,
		ContactPrompt:   testContactPrompt,
		NoAnswerText:    testNoAnswer,
		IngestBatchSize: 2,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { f.engine.Close(context.Background()) })

	if cfg.seed {
		// stored vectors always come from the hash embedder
		stored, invalid, err := f.engine.IngestBatch(context.Background(), seedEntries, nil)
		require.NoError(t, err)
		require.Empty(t, invalid)
		require.Equal(t, len(seedEntries), stored)
	}
	return f
}

func TestNewEngine_MissingComponents(t *testing.T) {
	_, err := NewEngine(EngineComponents{}, EngineOptions{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "assembler, dispatcher, embedder")
}

func TestEngine_ExactQuestionIsTopSource(t *testing.T) {
	f := newFixture(t, fixtureConfig{seed: true})

	res, err := f.engine.Respond(context.Background(), RespondRequest{Message: "How do I return an item?", SessionID: "s1"})
	require.NoError(t, err)

	require.NotEmpty(t, res.Sources)
	assert.Equal(t, "How do I return an item?", res.Sources[0])
	assert.False(t, res.NeedsEscalation)
	assert.Empty(t, res.EscalationReason)
	assert.Greater(t, res.Confidence, 0.0)
	assert.True(t, res.ContextUsed)
	assert.False(t, res.UsedFallback)
	assert.Equal(t, "generated answer", res.Text)
	assert.Equal(t, "s1", res.SessionID)

	cands, err := f.engine.Search(context.Background(), "How do I return an item?", "", 3)
	require.NoError(t, err)
	require.NotEmpty(t, cands)
	assert.Equal(t, "ret1", cands[0].Entry.ID)
	assert.Greater(t, cands[0].Similarity, 0.9)
}

func TestEngine_PromptCarriesContext(t *testing.T) {
	f := newFixture(t, fixtureConfig{seed: true})

	_, err := f.engine.Respond(context.Background(), RespondRequest{Message: "How do I return an item?"})
	require.NoError(t, err)

	require.Equal(t, 1, f.llm.calls())
	user := f.llm.requests[0].Messages[1].Content
	assert.Contains(t, user, "[1] Q: How do I return an item?")
	assert.Contains(t, user, "Returns are accepted within 30 days")
}

func TestEngine_IdenticalVectorHasMaximumSimilarity(t *testing.T) {
	f := newFixture(t, fixtureConfig{seed: true})

	all, err := f.store.All(context.Background())
	require.NoError(t, err)
	var target domain.KnowledgeEntry
	for _, e := range all {
		if e.ID == "pay1" {
			target = e
		}
	}
	require.NotEmpty(t, target.Embedding)

	results, err := f.store.Search(context.Background(), target.Embedding, 3, "")
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "pay1", results[0].Entry.ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-5)
}

func TestEngine_ExplicitHandoffEscalates(t *testing.T) {
	f := newFixture(t, fixtureConfig{seed: true})

	res, err := f.engine.Respond(context.Background(), RespondRequest{Message: "I want to talk to a human", SessionID: "s1"})
	require.NoError(t, err)

	assert.True(t, res.NeedsEscalation)
	assert.Equal(t, string(domain.ReasonExplicitRequest), res.EscalationReason)
	assert.Contains(t, res.Text, testContactPrompt)

	waitEvents(t, f.notifier, 1)
	events := f.notifier.received()
	require.Len(t, events, 1)
	assert.Equal(t, "s1", events[0].SessionID)
	assert.Equal(t, domain.ReasonExplicitRequest, events[0].Reason)
	assert.Equal(t, "Customer", events[0].UserName)
	assert.Contains(t, events[0].Transcript, "USER: I want to talk to a human")
	assert.Regexp(t, regexp.MustCompile(`^TKT-\d{8}-[0-9A-F]{6}$`), events[0].TicketID)
}

func TestEngine_NotifierFailureKeepsAnswer(t *testing.T) {
	f := newFixture(t, fixtureConfig{seed: true})
	f.notifier.err = errors.New("webhook down")

	res, err := f.engine.Respond(context.Background(), RespondRequest{Message: "I want to talk to a human", SessionID: "s1"})
	require.NoError(t, err)
	assert.True(t, res.NeedsEscalation)
	assert.Equal(t, string(domain.ReasonExplicitRequest), res.EscalationReason)
	assert.Contains(t, res.Text, testContactPrompt)

	waitEvents(t, f.notifier, 1)
	assert.Eventually(t, func() bool {
		return f.engine.dispatcher.Stats().Failed == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.True(t, f.engine.Session(context.Background(), "s1").Escalated)
}

func TestEngine_KnownEmailSkipsContactPrompt(t *testing.T) {
	f := newFixture(t, fixtureConfig{seed: true})

	res, err := f.engine.Respond(context.Background(), RespondRequest{
		Message:   "Can I speak to an agent?",
		UserEmail: "jane@example.com",
	})
	require.NoError(t, err)
	assert.True(t, res.NeedsEscalation)
	assert.NotContains(t, res.Text, testContactPrompt)

	waitEvents(t, f.notifier, 1)
	assert.Equal(t, "jane@example.com", f.notifier.received()[0].UserContact)
}

func TestEngine_EmptyKnowledgeBase(t *testing.T) {
	f := newFixture(t, fixtureConfig{})

	res, err := f.engine.Respond(context.Background(), RespondRequest{Message: "How do I return an item?"})
	require.NoError(t, err)

	assert.NotNil(t, res.Sources)
	assert.Empty(t, res.Sources)
	assert.Equal(t, 0.0, res.Confidence)
	assert.True(t, res.NeedsEscalation)
	assert.Equal(t, string(domain.ReasonLowConfidence), res.EscalationReason)
	assert.False(t, res.ContextUsed)
	assert.NotEmpty(t, res.SessionID)

	user := f.llm.requests[0].Messages[1].Content
	assert.Contains(t, user, "No relevant knowledge base entries were found.")
}

func TestEngine_GenerationFailureFallsBackVerbatim(t *testing.T) {
	f := newFixture(t, fixtureConfig{seed: true, llm: alwaysFailLLM{}})

	res, err := f.engine.Respond(context.Background(), RespondRequest{Message: "How do I return an item?"})
	require.NoError(t, err)

	assert.True(t, res.UsedFallback)
	assert.Equal(t, seedEntries[0].Content, res.Text)
	assert.False(t, res.NeedsEscalation)
	assert.Equal(t, []string{"How do I return an item?"}, res.Sources[:1])
}

func TestEngine_GenerationFailureWithoutCandidates(t *testing.T) {
	f := newFixture(t, fixtureConfig{llm: alwaysFailLLM{}})

	res, err := f.engine.Respond(context.Background(), RespondRequest{Message: "Where is my parcel?"})
	require.NoError(t, err)

	assert.True(t, res.UsedFallback)
	assert.Equal(t, testNoAnswer+testContactPrompt, res.Text)
	assert.Equal(t, 0.0, res.Confidence)
}

func TestEngine_SourcesRankedAndBounded(t *testing.T) {
	f := newFixture(t, fixtureConfig{seed: true})

	cands, err := f.engine.Search(context.Background(), "how long does express shipping take", "", 0)
	require.NoError(t, err)
	require.NotEmpty(t, cands)
	assert.LessOrEqual(t, len(cands), 3)
	for i, c := range cands {
		assert.Equal(t, i+1, c.Rank)
		assert.Empty(t, c.Entry.Embedding)
		if i > 0 {
			assert.LessOrEqual(t, c.Similarity, cands[i-1].Similarity)
		}
	}
}

func TestEngine_CategoryFilterIsNeverWidened(t *testing.T) {
	f := newFixture(t, fixtureConfig{seed: true})
	ctx := context.Background()

	cands, err := f.engine.Search(ctx, "How long does shipping take?", "shipping", 5)
	require.NoError(t, err)
	require.NotEmpty(t, cands)
	for _, c := range cands {
		assert.Equal(t, domain.Category("shipping"), c.Entry.Category)
	}

	res, err := f.engine.Respond(ctx, RespondRequest{Message: "How do I return an item?", Category: "warranty"})
	require.NoError(t, err)
	assert.Empty(t, res.Sources)
	assert.True(t, res.NeedsEscalation)

	cands, err = f.engine.Search(ctx, "How do I return an item?", "gift_cards", 5)
	require.NoError(t, err)
	assert.Empty(t, cands)

	_, err = f.engine.Search(ctx, "How do I return an item?", "!!", 5)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestEngine_SearchIsIdempotent(t *testing.T) {
	f := newFixture(t, fixtureConfig{seed: true})

	first, err := f.engine.Search(context.Background(), "reset password", "", 3)
	require.NoError(t, err)
	second, err := f.engine.Search(context.Background(), "reset password", "", 3)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestEngine_SessionRecordsTurns(t *testing.T) {
	f := newFixture(t, fixtureConfig{seed: true})
	ctx := context.Background()

	_, err := f.engine.Respond(ctx, RespondRequest{Message: "How do I return an item?", SessionID: "s1"})
	require.NoError(t, err)
	_, err = f.engine.Respond(ctx, RespondRequest{Message: "How long does shipping take?", SessionID: "s1"})
	require.NoError(t, err)

	sess := f.engine.Session(ctx, "s1")
	require.Len(t, sess.Turns, 4)
	assert.Equal(t, domain.RoleUser, sess.Turns[0].Role)
	assert.Equal(t, "How do I return an item?", sess.Turns[0].Text)
	assert.Equal(t, domain.RoleAssistant, sess.Turns[1].Role)
	assert.Equal(t, "How long does shipping take?", sess.Turns[2].Text)

	// the second prompt carries the first exchange
	user := f.llm.requests[1].Messages[1].Content
	assert.Contains(t, user, "USER: How do I return an item?")
}

type blockingLLM struct{}

func (blockingLLM) Complete(ctx context.Context, _ port.CompletionRequest) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (blockingLLM) ModelName() string { return "slow" }

func TestEngine_AbandonedRequestRecordsNothing(t *testing.T) {
	f := newFixture(t, fixtureConfig{seed: true, llm: blockingLLM{}})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := f.engine.Respond(ctx, RespondRequest{Message: "How do I return an item?", SessionID: "gone"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	assert.Empty(t, f.engine.Session(context.Background(), "gone").Turns)
	assert.Empty(t, f.notifier.received())
}

func TestEngine_LexicalFallback(t *testing.T) {
	f := newFixture(t, fixtureConfig{seed: true, lexical: true, queryEmbedder: failingEmbedder{dim: testDimension}})

	res, err := f.engine.Respond(context.Background(), RespondRequest{Message: "What payment methods do you accept?"})
	require.NoError(t, err)
	require.NotEmpty(t, res.Sources)
	assert.Equal(t, "What payment methods do you accept?", res.Sources[0])
	assert.Less(t, res.Confidence, 0.7+0.2+0.1)
}

func TestEngine_EmbeddingUnavailableWithoutFallback(t *testing.T) {
	f := newFixture(t, fixtureConfig{seed: true, queryEmbedder: failingEmbedder{dim: testDimension}})

	_, err := f.engine.Respond(context.Background(), RespondRequest{Message: "What payment methods do you accept?", SessionID: "s"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrEmbeddingUnavailable))
	assert.Empty(t, f.engine.Session(context.Background(), "s").Turns)
}

func TestEngine_VectorStoreFailureIsServiceUnavailable(t *testing.T) {
	f := newFixture(t, fixtureConfig{store: brokenStore{memstore.NewMemoryVectorStore(testDimension)}})

	_, err := f.engine.Respond(context.Background(), RespondRequest{Message: "How do I return an item?", SessionID: "s"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrServiceUnavailable))
	assert.True(t, errors.Is(err, domain.ErrVectorStoreUnavailable))
	assert.Empty(t, f.engine.Session(context.Background(), "s").Turns)
}

func TestEngine_EscalationPersistsUntilResolved(t *testing.T) {
	f := newFixture(t, fixtureConfig{seed: true})
	ctx := context.Background()

	_, err := f.engine.Respond(ctx, RespondRequest{Message: "I want to talk to a human", SessionID: "s1", UserEmail: "a@b.co"})
	require.NoError(t, err)
	waitEvents(t, f.notifier, 1)

	res, err := f.engine.Respond(ctx, RespondRequest{Message: "How do I return an item?", SessionID: "s1", UserEmail: "a@b.co"})
	require.NoError(t, err)
	assert.True(t, res.NeedsEscalation)
	assert.Equal(t, string(domain.ReasonUnresolved), res.EscalationReason)
	assert.True(t, f.engine.Session(ctx, "s1").Escalated)

	res, err = f.engine.Respond(ctx, RespondRequest{Message: "How do I return an item? ok that helped", SessionID: "s1", UserEmail: "a@b.co"})
	require.NoError(t, err)
	assert.False(t, res.NeedsEscalation)
	assert.False(t, f.engine.Session(ctx, "s1").Escalated)

	require.NoError(t, f.engine.Close(ctx))
	assert.Len(t, f.notifier.received(), 1, "an already escalated session is not re-notified")
}

func TestEngine_SourcesLimitedToAssembledContext(t *testing.T) {
	budget := ContextOptions{MaxEntryChars: 200, MaxTotalChars: 200}
	f := newFixture(t, fixtureConfig{context: &budget})

	filler := strings.Repeat(" Orders leave the warehouse once payment clears and tracking is emailed.", 3)
	entries := []domain.EntryInput{
		{ID: "s1", Category: "shipping", Title: "How long does shipping take?", Content: "Standard shipping takes 3-5 business days." + filler},
		{ID: "s2", Category: "shipping", Title: "How long does shipping take to Canada?", Content: "Shipping to Canada takes 7-10 business days." + filler},
		{ID: "s3", Category: "shipping", Title: "How long does shipping take to Mexico?", Content: "Shipping to Mexico takes 8-12 business days." + filler},
	}
	_, _, err := f.engine.IngestBatch(context.Background(), entries, nil)
	require.NoError(t, err)

	ctx := context.Background()
	const query = "How long does shipping take?"
	cands, err := f.engine.Search(ctx, query, "", 3)
	require.NoError(t, err)
	require.Greater(t, len(cands), 1)

	res, err := f.engine.Respond(ctx, RespondRequest{Message: query})
	require.NoError(t, err)
	require.Equal(t, 1, f.llm.calls())

	prompt := f.llm.requests[0].Messages[1].Content
	require.Len(t, res.Sources, 1)
	assert.Equal(t, cands[0].Entry.Question, res.Sources[0])
	for _, src := range res.Sources {
		assert.Contains(t, prompt, "Q: "+src)
	}
	assert.NotContains(t, prompt, cands[1].Entry.Question)
	assert.InDelta(t, testScorer().Score(cands[:1], true), res.Confidence, 1e-9)
}

func TestEngine_SearchRejectsNegativeTopK(t *testing.T) {
	f := newFixture(t, fixtureConfig{seed: true})

	_, err := f.engine.Search(context.Background(), "shipping", "", -1)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	cands, err := f.engine.Search(context.Background(), "How long does shipping take?", "", 0)
	require.NoError(t, err)
	assert.NotEmpty(t, cands)
}

func TestEngine_InvalidMessage(t *testing.T) {
	f := newFixture(t, fixtureConfig{})

	_, err := f.engine.Respond(context.Background(), RespondRequest{Message: "   "})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = f.engine.Respond(context.Background(), RespondRequest{Message: "hi", Category: "bad category!"})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	assert.Equal(t, 0, f.llm.calls())
}

func TestEngine_Escalate(t *testing.T) {
	f := newFixture(t, fixtureConfig{seed: true})
	ctx := context.Background()

	_, err := f.engine.Respond(ctx, RespondRequest{Message: "How do I return an item?", SessionID: "s1"})
	require.NoError(t, err)

	ticket, err := f.engine.Escalate(ctx, EscalationRequest{SessionID: "s1", UserEmail: "jane@example.com"})
	require.NoError(t, err)
	assert.Regexp(t, `^TKT-\d{8}-[0-9A-F]{6}$`, ticket.TicketID)
	assert.Contains(t, ticket.Message, "jane@example.com")

	events := f.notifier.received()
	require.Len(t, events, 1)
	assert.Equal(t, domain.ReasonUserSubmitted, events[0].Reason)
	assert.Equal(t, "How do I return an item?", events[0].OriginalQuery)
	assert.Equal(t, "normal", events[0].Priority)
	assert.True(t, f.engine.Session(ctx, "s1").Escalated)
}

func TestEngine_EscalateValidation(t *testing.T) {
	f := newFixture(t, fixtureConfig{})

	_, err := f.engine.Escalate(context.Background(), EscalationRequest{SessionID: "s1", UserEmail: "not-an-email"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	assert.Contains(t, err.Error(), "user_email must be a valid email")
	assert.Empty(t, f.notifier.received())
}

func TestEngine_EscalateDeliveryFailure(t *testing.T) {
	f := newFixture(t, fixtureConfig{})
	f.notifier.err = errors.New("webhook down")

	_, err := f.engine.Escalate(context.Background(), EscalationRequest{SessionID: "s1", UserEmail: "jane@example.com"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrEscalationDeliveryFailed))
	assert.False(t, f.engine.Session(context.Background(), "s1").Escalated)
}

func TestEngine_IngestAndStats(t *testing.T) {
	f := newFixture(t, fixtureConfig{})
	ctx := context.Background()

	id, err := f.engine.Ingest(ctx, domain.EntryInput{Title: "Can I get a refund?", Content: "Refunds take 5-7 days.", Category: "Refunds"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	_, err = f.engine.Ingest(ctx, domain.EntryInput{ID: "gc", Title: "Do you sell gift cards?", Content: "Yes, from $10.", Category: "gift cards"})
	require.NoError(t, err)

	_, err = f.engine.Ingest(ctx, domain.EntryInput{Title: "  ", Content: "orphan answer"})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	stats, err := f.engine.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.EntryCount)
	assert.Equal(t, map[domain.Category]int{"returns": 1, "general": 1}, stats.CategoryCounts)
}

func TestEngine_IngestBatchReportsProgress(t *testing.T) {
	f := newFixture(t, fixtureConfig{})

	inputs := append([]domain.EntryInput{{Title: "", Content: "missing title"}}, seedEntries...)
	var progress [][2]int
	stored, invalid, err := f.engine.IngestBatch(context.Background(), inputs, func(done, total int) {
		progress = append(progress, [2]int{done, total})
	})
	require.NoError(t, err)
	assert.Equal(t, 5, stored)
	require.Len(t, invalid, 1)
	assert.Contains(t, invalid[0].Error(), "record 1")
	assert.Equal(t, [][2]int{{2, 5}, {4, 5}, {5, 5}}, progress)
}

func TestEngine_ClearInvalidatesCache(t *testing.T) {
	f := newFixture(t, fixtureConfig{seed: true})
	ctx := context.Background()

	before, err := f.engine.Search(ctx, "How do I return an item?", "", 3)
	require.NoError(t, err)
	require.NotEmpty(t, before)

	require.NoError(t, f.engine.Clear(ctx))

	after, err := f.engine.Search(ctx, "How do I return an item?", "", 3)
	require.NoError(t, err)
	assert.Empty(t, after)
}

func TestEngine_Categories(t *testing.T) {
	f := newFixture(t, fixtureConfig{})
	cats := f.engine.Categories()
	assert.Len(t, cats, len(domain.KnownCategories)+1)
	assert.Contains(t, cats, domain.CategoryGeneral)
}
