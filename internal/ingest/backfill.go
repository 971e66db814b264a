package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mfeldheim/hindsight/internal/llm"
	"github.com/mfeldheim/hindsight/internal/models"
	"github.com/mfeldheim/hindsight/internal/repo"
)

// JobStatus represents the state of a background backfill job.
type JobStatus string

const (
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Job tracks one backfill run.
type Job struct {
	ID          string
	Type        string
	Status      JobStatus
	Progress    int
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time

	mu sync.Mutex
}

func newJob(jobType string) *Job {
	return &Job{
		ID:        uuid.New().String()[:8], // Short ID for convenience
		Type:      jobType,
		Status:    JobStatusRunning,
		StartedAt: time.Now(),
	}
}

func (j *Job) advance(n int) {
	j.mu.Lock()
	j.Progress += n
	j.mu.Unlock()
}

func (j *Job) finish(err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	now := time.Now()
	j.CompletedAt = &now
	if err != nil {
		j.Status = JobStatusFailed
		j.Error = err.Error()
		return
	}
	j.Status = JobStatusCompleted
}

// Snapshot returns a copy safe to read while the job runs.
func (j *Job) Snapshot() Job {
	j.mu.Lock()
	defer j.mu.Unlock()
	return Job{
		ID: j.ID, Type: j.Type, Status: j.Status, Progress: j.Progress,
		Error: j.Error, StartedAt: j.StartedAt, CompletedAt: j.CompletedAt,
	}
}

// Backfiller fills in data that import deliberately defers: embedding
// vectors and missing conversation titles.
type Backfiller struct {
	messages      *repo.Messages
	conversations *repo.Conversations
	embedder      *llm.Embedder
	titler        *llm.Titler
	log           *slog.Logger
	batchSize     int
}

// NewBackfiller wires a backfiller. titler may be nil, disabling title
// backfill.
func NewBackfiller(messages *repo.Messages, conversations *repo.Conversations, embedder *llm.Embedder, titler *llm.Titler, log *slog.Logger, batchSize int) *Backfiller {
	if batchSize <= 0 {
		batchSize = 32
	}
	return &Backfiller{
		messages:      messages,
		conversations: conversations,
		embedder:      embedder,
		titler:        titler,
		log:           log,
		batchSize:     batchSize,
	}
}

// BackfillEmbeddings drains messages whose vector is still the zero
// placeholder, embedding their indexed content batch by batch. Returns the
// finished job record.
func (b *Backfiller) BackfillEmbeddings(ctx context.Context) (*Job, error) {
	if b.embedder == nil {
		return nil, fmt.Errorf("no embedder configured")
	}
	job := newJob("embedding_backfill")
	b.log.Info("embedding backfill started", "job_id", job.ID, "batch_size", b.batchSize)

	err := b.drainEmbeddings(ctx, job)
	job.finish(err)
	if err != nil {
		b.log.Error("embedding backfill failed", "job_id", job.ID, "embedded", job.Progress, "error", err)
		return job, err
	}
	b.log.Info("embedding backfill completed", "job_id", job.ID, "embedded", job.Progress)
	return job, nil
}

func (b *Backfiller) drainEmbeddings(ctx context.Context, job *Job) error {
	dim := b.embedder.Dimension()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		batch, err := b.messages.FindMissingEmbeddings(ctx, dim, b.batchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}

		texts := make([]string, len(batch))
		for i, m := range batch {
			texts[i] = m.IndexedContent
		}
		vectors, err := b.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return err
		}

		for i, m := range batch {
			if err := b.messages.UpdateVector(ctx, m.RowID(), vectors[i]); err != nil {
				return err
			}
		}
		job.advance(len(batch))

		if len(batch) < b.batchSize {
			return nil
		}
	}
}

// BackfillTitles generates titles for untitled conversations from their
// opening user message. Conversations whose generation fails are logged
// and skipped, not fatal.
func (b *Backfiller) BackfillTitles(ctx context.Context, source string, limit int) (*Job, error) {
	if b.titler == nil {
		return nil, fmt.Errorf("no title model configured")
	}
	if limit <= 0 {
		limit = 50
	}
	job := newJob("title_backfill")
	b.log.Info("title backfill started", "job_id", job.ID, "source", source, "limit", limit)

	var convs []models.Conversation
	var err error
	if source != "" {
		convs, err = b.conversations.FindUntitledBySource(ctx, source, limit)
	} else {
		convs, err = b.conversations.FindUntitled(ctx, limit)
	}
	if err != nil {
		job.finish(err)
		return job, err
	}

	for _, conv := range convs {
		if err := ctx.Err(); err != nil {
			job.finish(err)
			return job, err
		}
		excerpt, err := b.titleExcerpt(ctx, conv)
		if err != nil {
			b.log.Warn("skipping conversation for title backfill", "conversation", conv.RowID(), "error", err)
			continue
		}
		if excerpt == "" {
			continue
		}
		title, err := b.titler.GenerateTitle(ctx, excerpt)
		if err != nil {
			b.log.Warn("title generation failed", "conversation", conv.RowID(), "error", err)
			continue
		}
		if title == "" {
			continue
		}
		if err := b.conversations.UpdateTitle(ctx, conv.RowID(), title); err != nil {
			b.log.Warn("title update failed", "conversation", conv.RowID(), "error", err)
			continue
		}
		job.advance(1)
	}

	job.finish(nil)
	b.log.Info("title backfill completed", "job_id", job.ID, "titled", job.Progress)
	return job, nil
}

// titleExcerpt builds the prompt excerpt from the first user turns.
func (b *Backfiller) titleExcerpt(ctx context.Context, conv models.Conversation) (string, error) {
	msgs, err := b.messages.FindByConversation(ctx, conv.RowID())
	if err != nil {
		return "", err
	}
	var parts []string
	for _, m := range msgs {
		if m.Role != models.RoleUser || m.IndexedContent == "" {
			continue
		}
		parts = append(parts, m.IndexedContent)
		if len(parts) >= 2 {
			break
		}
	}
	return strings.Join(parts, "\n\n"), nil
}
