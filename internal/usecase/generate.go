package usecase

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"go.uber.org/zap"

	"github.com/EmonKarmaker/ai-support-system/internal/domain"
	"github.com/EmonKarmaker/ai-support-system/internal/port"
	"github.com/EmonKarmaker/ai-support-system/internal/retry"
)

//go:embed templates/*.txt
var promptTemplates embed.FS

// GenerationOptions holds sampling and retry policy for answer generation.
type GenerationOptions struct {
	StoreName    string
	Temperature  float64
	MaxTokens    int
	HistoryTurns int
	Timeout      time.Duration // per attempt
	Retry        retry.Policy
}

// Generator produces a grounded answer from the assembled context.
type Generator struct {
	llm    port.LLM
	opts   GenerationOptions
	system *template.Template
	user   *template.Template
	logger *zap.Logger
}

type promptData struct {
	StoreName string
	Context   string
	History   []domain.SessionTurn
	Query     string
}

// NewGenerator creates a generator. A nil llm is allowed: every call then
// fails with ErrGenerationUnavailable and the engine serves fallback answers.
func NewGenerator(llm port.LLM, opts GenerationOptions, logger *zap.Logger) (*Generator, error) {
	system, err := loadTemplate("templates/system_prompt.txt")
	if err != nil {
		return nil, err
	}
	user, err := loadTemplate("templates/user_prompt.txt")
	if err != nil {
		return nil, err
	}
	if opts.StoreName == "" {
		opts.StoreName = "our store"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		llm:    llm,
		opts:   opts,
		system: system,
		user:   user,
		logger: logger,
	}, nil
}

func loadTemplate(name string) (*template.Template, error) {
	content, err := promptTemplates.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("template not found: %w", err)
	}
	tmpl, err := template.New(name).Funcs(templateFuncs()).Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	return tmpl, nil
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"upper": func(r domain.Role) string { return strings.ToUpper(string(r)) },
	}
}

// BuildMessages renders the prompt for one query. Only the last HistoryTurns
// turns of history are included.
func (g *Generator) BuildMessages(query, contextBlock string, history []domain.SessionTurn) ([]port.Message, error) {
	if n := g.opts.HistoryTurns; len(history) > n {
		history = history[len(history)-n:]
	}
	data := promptData{
		StoreName: g.opts.StoreName,
		Context:   contextBlock,
		History:   history,
		Query:     query,
	}

	var sys, usr bytes.Buffer
	if err := g.system.Execute(&sys, data); err != nil {
		return nil, fmt.Errorf("failed to render system prompt: %w", err)
	}
	if err := g.user.Execute(&usr, data); err != nil {
		return nil, fmt.Errorf("failed to render user prompt: %w", err)
	}

	return []port.Message{
		{Role: "system", Content: strings.TrimSpace(sys.String())},
		{Role: "user", Content: strings.TrimSpace(usr.String())},
	}, nil
}

// Generate calls the completion provider, retrying transient failures with
// capped exponential backoff. Exhausted or permanent failures are reported
// as ErrGenerationUnavailable.
func (g *Generator) Generate(ctx context.Context, query, contextBlock string, history []domain.SessionTurn) (string, error) {
	const op = "generate"
	if g.llm == nil {
		return "", domain.GenerationUnavailable(op, errors.New("no completion provider configured"))
	}

	messages, err := g.BuildMessages(query, contextBlock, history)
	if err != nil {
		return "", domain.GenerationUnavailable(op, err)
	}
	req := port.CompletionRequest{
		Messages:    messages,
		Temperature: g.opts.Temperature,
		MaxTokens:   g.opts.MaxTokens,
	}

	var answer string
	attempts, err := retry.Do(ctx, g.opts.Retry, port.IsTransient, func(ctx context.Context) error {
		actx, cancel := withTimeout(ctx, g.opts.Timeout)
		defer cancel()

		out, err := g.llm.Complete(actx, req)
		if err != nil {
			g.logger.Debug("completion attempt failed", zap.Error(err))
			return err
		}
		answer = out
		return nil
	})
	if err != nil {
		g.logger.Warn("generation unavailable",
			zap.String("model", g.llm.ModelName()),
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
		return "", domain.GenerationUnavailable(op, err)
	}
	return answer, nil
}
