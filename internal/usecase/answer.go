package usecase

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"strings"
	"text/template"
	"time"
	"unicode/utf8"

	"qalog/internal/domain"
	"qalog/internal/logger"
	"qalog/internal/port"
)

//go:embed templates/*.txt
var templateFS embed.FS

var answerTemplate = template.Must(template.ParseFS(templateFS, "templates/answer.txt"))

type promptData struct {
	Context  string
	Question string
}

// Synthesizer turns a question and its retrieved chunks into an answer.
type Synthesizer struct {
	llm port.LLM
}

func NewSynthesizer(llm port.LLM) *Synthesizer {
	return &Synthesizer{llm: llm}
}

// Prompt renders the prompt for question over chunks, in retrieval order.
func (s *Synthesizer) Prompt(question string, chunks []domain.ScoredChunk) (string, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Chunk.Text
	}

	var buf bytes.Buffer
	err := answerTemplate.Execute(&buf, promptData{
		Context:  strings.Join(texts, "\n\n"),
		Question: question,
	})
	if err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}
	return buf.String(), nil
}

// Answer asks the model. With no chunks the model is still called, with an
// empty context.
func (s *Synthesizer) Answer(ctx context.Context, question string, chunks []domain.ScoredChunk) (string, error) {
	prompt, err := s.Prompt(question, chunks)
	if err != nil {
		return "", err
	}
	answer, err := s.llm.Generate(ctx, "", prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(answer) == "" {
		return "", fmt.Errorf("model %s returned an empty answer: %w", s.llm.ModelName(), domain.ErrContent)
	}
	return answer, nil
}

// AnswerUseCase runs the full pipeline for one question: retrieve, synthesize
// and log.
type AnswerUseCase struct {
	retrieve    *RetrieveUseCase
	synthesizer *Synthesizer
	logs        port.LogStore
	now         func() time.Time
}

func NewAnswerUseCase(retrieve *RetrieveUseCase, synthesizer *Synthesizer, logs port.LogStore) *AnswerUseCase {
	return &AnswerUseCase{
		retrieve:    retrieve,
		synthesizer: synthesizer,
		logs:        logs,
		now:         time.Now,
	}
}

// Ask answers question and appends the exchange under logID. Nothing is
// written when any stage fails.
func (u *AnswerUseCase) Ask(ctx context.Context, logID, question string) (domain.LogRecord, error) {
	if err := domain.ValidateQuestion(logID, question); err != nil {
		return domain.LogRecord{}, err
	}

	start := u.now()
	chunks, err := u.retrieve.Retrieve(ctx, question)
	if err != nil {
		return domain.LogRecord{}, fmt.Errorf("retrieving context: %w", err)
	}
	logger.Debug("retrieved context", "logid", logID, "chunks", len(chunks))

	answer, err := u.synthesizer.Answer(ctx, question, chunks)
	if err != nil {
		return domain.LogRecord{}, fmt.Errorf("synthesizing answer: %w", err)
	}
	if n := utf8.RuneCountInString(answer); n > domain.MaxAnswerLen {
		return domain.LogRecord{}, fmt.Errorf("answer is %d characters, limit is %d: %w", n, domain.MaxAnswerLen, domain.ErrContent)
	}

	rec, err := domain.NewLogRecord(logID, question, answer, u.now())
	if err != nil {
		return domain.LogRecord{}, err
	}
	rec, err = u.logs.Append(ctx, rec)
	if err != nil {
		return domain.LogRecord{}, fmt.Errorf("storing log: %w", err)
	}

	logger.Info("answered question", "logid", logID, "id", rec.ID, "chunks", len(chunks), "elapsed", u.now().Sub(start))
	return rec, nil
}
