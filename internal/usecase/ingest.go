package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/EmonKarmaker/ai-support-system/internal/adapter/embedding"
	"github.com/EmonKarmaker/ai-support-system/internal/domain"
)

// Ingest validates, embeds and stores one entry and returns its ID.
// Unknown categories are tagged general; an empty ID gets a new UUID.
func (e *Engine) Ingest(ctx context.Context, in domain.EntryInput) (string, error) {
	entry, err := prepareEntry(in)
	if err != nil {
		return "", err
	}
	if err := e.storeEntries(ctx, []domain.KnowledgeEntry{entry}); err != nil {
		return "", err
	}
	e.logger.Info("knowledge entry added",
		zap.String("id", entry.ID),
		zap.String("category", string(entry.Category)))
	return entry.ID, nil
}

// IngestBatch stores entries in batches of IngestBatchSize. Invalid inputs
// are skipped and reported in the returned error list; a provider failure
// aborts the remaining batches. progress, when set, is called after each batch.
func (e *Engine) IngestBatch(ctx context.Context, inputs []domain.EntryInput, progress func(done, total int)) (int, []error, error) {
	entries := make([]domain.KnowledgeEntry, 0, len(inputs))
	var invalid []error
	for i, in := range inputs {
		entry, err := prepareEntry(in)
		if err != nil {
			invalid = append(invalid, fmt.Errorf("record %d: %w", i+1, err))
			continue
		}
		entries = append(entries, entry)
	}

	stored := 0
	for start := 0; start < len(entries); start += e.opts.IngestBatchSize {
		end := min(start+e.opts.IngestBatchSize, len(entries))
		if err := e.storeEntries(ctx, entries[start:end]); err != nil {
			return stored, invalid, err
		}
		stored = end
		if progress != nil {
			progress(stored, len(entries))
		}
	}
	return stored, invalid, nil
}

func prepareEntry(in domain.EntryInput) (domain.KnowledgeEntry, error) {
	const op = "ingest"

	in.ID = strings.TrimSpace(in.ID)
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	in.Category = strings.TrimSpace(in.Category)
	in.Product = strings.TrimSpace(in.Product)
	if err := validateStruct(op, in); err != nil {
		return domain.KnowledgeEntry{}, err
	}

	id := in.ID
	if id == "" {
		id = uuid.NewString()
	}
	return domain.KnowledgeEntry{
		ID:       id,
		Category: domain.NormalizeCategory(in.Category),
		Question: in.Title,
		Answer:   in.Content,
		Product:  in.Product,
	}, nil
}

// storeEntries embeds question and answer separately and stores the
// question-weighted blend, so a user question lands closest to the entry that
// asks the same thing.
func (e *Engine) storeEntries(ctx context.Context, entries []domain.KnowledgeEntry) error {
	const op = "ingest"

	texts := make([]string, 0, 2*len(entries))
	for _, entry := range entries {
		texts = append(texts, entry.Question, entry.Answer)
	}
	vecs, err := e.embedder.Embed(ctx, texts)
	if err != nil {
		return domain.EmbeddingUnavailable(op, err)
	}
	if len(vecs) != len(texts) {
		return domain.EmbeddingUnavailable(op, errMalformedEmbedding)
	}

	for i := range entries {
		entries[i].Embedding = embedding.Blend(vecs[2*i], vecs[2*i+1], e.opts.QuestionWeight)
	}
	if err := e.store.Upsert(ctx, entries); err != nil {
		return domain.VectorStoreUnavailable(op, err)
	}
	if e.cache != nil {
		e.cache.Invalidate()
	}
	return nil
}
