package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aawaaz/incident-server/internal/apperr"
	"github.com/aawaaz/incident-server/internal/fieldcrypt"
	"github.com/aawaaz/incident-server/internal/models"
)

// Memory is a process-local Store for development and tests. Records are held
// sealed, exactly as a database backend would hold them.
type Memory struct {
	mu       sync.RWMutex
	codec    *fieldcrypt.Codec
	seq      int64
	reports  map[string]*memReport
	comments map[string][]models.Comment
	activity map[string][]models.ActivityLog
}

type memReport struct {
	report models.Report
	seq    int64
}

// NewMemory creates an empty in-memory store.
func NewMemory(codec *fieldcrypt.Codec) *Memory {
	return &Memory{
		codec:    codec,
		reports:  make(map[string]*memReport),
		comments: make(map[string][]models.Comment),
		activity: make(map[string][]models.ActivityLog),
	}
}

func (m *Memory) CreateReport(ctx context.Context, r *models.Report) error {
	sealed, err := sealReport(m.codec, r)
	if err != nil {
		return apperr.Wrap(apperr.ErrStorage, fmt.Errorf("seal report: %w", err))
	}
	sealed.Media = append([]models.Media(nil), r.Media...)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.reports[r.ID]; exists {
		return apperr.New(apperr.ErrStorage, "report %s already exists", r.ID)
	}
	m.seq++
	m.reports[r.ID] = &memReport{report: sealed, seq: m.seq}
	return nil
}

// opened returns a decrypted copy. Caller holds the lock.
func (m *Memory) opened(mr *memReport) models.Report {
	r := mr.report
	r.Media = append([]models.Media(nil), mr.report.Media...)
	openReport(m.codec, &r)
	return r
}

func (m *Memory) GetReport(ctx context.Context, id string) (*models.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	mr, ok := m.reports[id]
	if !ok {
		return nil, apperr.New(apperr.ErrNotFound, "report %s", id)
	}
	r := m.opened(mr)
	return &r, nil
}

func (m *Memory) list(match func(*models.Report) bool, limit int) []models.Report {
	m.mu.RLock()
	defer m.mu.RUnlock()

	picked := make([]*memReport, 0, len(m.reports))
	for _, mr := range m.reports {
		if match(&mr.report) {
			picked = append(picked, mr)
		}
	}
	sort.Slice(picked, func(i, j int) bool {
		a, b := picked[i], picked[j]
		if !a.report.CreatedAt.Equal(b.report.CreatedAt) {
			return a.report.CreatedAt.After(b.report.CreatedAt)
		}
		return a.seq > b.seq
	})
	if limit > 0 && len(picked) > limit {
		picked = picked[:limit]
	}

	out := make([]models.Report, 0, len(picked))
	for _, mr := range picked {
		out = append(out, m.opened(mr))
	}
	return out
}

func (m *Memory) ListReports(ctx context.Context) ([]models.Report, error) {
	return m.list(func(*models.Report) bool { return true }, 0), nil
}

func (m *Memory) ListReportsByAuthor(ctx context.Context, authorID string, limit int) ([]models.Report, error) {
	return m.list(func(r *models.Report) bool { return r.AuthorID == authorID }, limit), nil
}

func (m *Memory) MarkEscalated(ctx context.Context, id string) (*models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mr, ok := m.reports[id]
	if !ok {
		return nil, apperr.New(apperr.ErrNotFound, "report %s", id)
	}
	mr.report.Status = models.StatusEscalated
	r := m.opened(mr)
	return &r, nil
}

func (m *Memory) IncrementVote(ctx context.Context, id string, dir models.VoteDirection) (*models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mr, ok := m.reports[id]
	if !ok {
		return nil, apperr.New(apperr.ErrNotFound, "report %s", id)
	}
	switch dir {
	case models.VoteUp:
		mr.report.Upvotes++
	case models.VoteDown:
		mr.report.Downvotes++
	default:
		return nil, apperr.New(apperr.ErrValidation, "unknown vote direction %q", dir)
	}
	r := m.opened(mr)
	return &r, nil
}

func (m *Memory) AddComment(ctx context.Context, c *models.Comment) error {
	sealed, err := sealComment(m.codec, c)
	if err != nil {
		return apperr.Wrap(apperr.ErrStorage, fmt.Errorf("seal comment: %w", err))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reports[c.ReportID]; !ok {
		return apperr.New(apperr.ErrNotFound, "report %s", c.ReportID)
	}
	m.comments[c.ReportID] = append(m.comments[c.ReportID], sealed)
	return nil
}

func (m *Memory) ListComments(ctx context.Context, reportID string) ([]models.Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored := m.comments[reportID]
	out := make([]models.Comment, len(stored))
	for i, c := range stored {
		openComment(m.codec, &c)
		out[i] = c
	}
	return out, nil
}

func (m *Memory) LogActivity(ctx context.Context, entry *models.ActivityLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activity[entry.ReportID] = append(m.activity[entry.ReportID], *entry)
	return nil
}

func (m *Memory) ListActivity(ctx context.Context, reportID string) ([]models.ActivityLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored := m.activity[reportID]
	out := make([]models.ActivityLog, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		out = append(out, stored[i])
	}
	return out, nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

func (m *Memory) Close(ctx context.Context) error { return nil }
