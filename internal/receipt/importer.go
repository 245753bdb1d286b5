package receipt

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
)

const maxSessions = 100

// Recognizer extracts text lines from a receipt image.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) ([]string, error)
}

// Importer keeps open import sessions in a TTL cache and runs scans.
type Importer struct {
	recognizer Recognizer
	sessions   *cache.LRUCache[*Session]
	logger     *slog.Logger
	now        func() time.Time
}

func NewImporter(recognizer Recognizer, ttl time.Duration, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{
		recognizer: recognizer,
		sessions:   cache.NewLRUCache[*Session](maxSessions, ttl),
		logger:     logger.With(log.FieldComponent, log.ComponentImport),
		now:        time.Now,
	}
}

// Sessions exposes the session cache so it can be registered for cleanup.
func (im *Importer) Sessions() *cache.LRUCache[*Session] {
	return im.sessions
}

// Open starts a session for an uploaded image. It does not scan.
func (im *Importer) Open(image []byte, categoryID int64) (*Session, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: image is empty", core.ErrValidation)
	}
	if categoryID <= 0 {
		return nil, core.ErrNoCategory
	}
	s := NewSession(uuid.NewString(), image, categoryID, im.now())
	im.sessions.Set(s.ID(), s)
	return s, nil
}

// Get returns a live session and extends its lifetime.
func (im *Importer) Get(id string) (*Session, error) {
	s, ok := im.sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("import session %s: %w", id, core.ErrNotFound)
	}
	im.sessions.Touch(id)
	return s, nil
}

func (im *Importer) Discard(id string) {
	im.sessions.Delete(id)
}

// Scan runs the recognizer once. A recognizer failure is recorded on the
// session as StatusFailed and returned; no retry is attempted.
func (im *Importer) Scan(ctx context.Context, s *Session) error {
	image, err := s.beginScan()
	if err != nil {
		return err
	}

	start := im.now()
	lines, err := im.recognizer.Recognize(ctx, image)
	s.finishScan(lines, err, im.now())
	if err != nil {
		im.logger.WarnContext(ctx, "Receipt recognition failed",
			log.FieldSessionID, s.ID(),
			log.FieldError, err)
		return err
	}

	im.logger.InfoContext(ctx, "Receipt scanned",
		log.FieldSessionID, s.ID(),
		"status", s.Status(),
		"lines", len(lines),
		log.FieldDuration, im.now().Sub(start).Milliseconds())
	return nil
}

// Commit inserts the session's drafts. The committed session stays readable until it expires.
func (im *Importer) Commit(ctx context.Context, s *Session, c Committer) ([]core.Transaction, error) {
	created, err := s.Commit(ctx, c)
	if err != nil {
		return nil, err
	}
	im.logger.InfoContext(ctx, "Receipt import committed",
		log.FieldSessionID, s.ID(),
		log.FieldCount, len(created))
	return created, nil
}
