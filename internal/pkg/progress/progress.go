// Package progress publishes upload progress to redis so clients can poll it.
package progress

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/trashmap/trashmap-api/internal/pkg/storage"
)

// KeyFormat is the redis hash holding one upload's progress.
const KeyFormat = "upload:progress:%s"

const DefaultTTL = time.Hour

// Upload states.
const (
	StatusUploading = "uploading"
	StatusStored    = "stored"
	StatusCommitted = "committed"
	StatusFailed    = "failed"
)

var (
	ErrNotFound  = errors.New("upload progress not found")
	ErrInvalidID = errors.New("invalid upload id")
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Status is what a poller sees.
type Status struct {
	ID        string    `json:"id"`
	Percent   int       `json:"percent"`
	Status    string    `json:"status"`
	ReportID  string    `json:"report_id,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Tracker writes and reads progress hashes.
type Tracker struct {
	rdb redis.Cmdable
	ttl time.Duration
	now func() time.Time
}

func NewTracker(rdb redis.Cmdable, ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Tracker{rdb: rdb, ttl: ttl, now: time.Now}
}

// ValidID reports whether id is usable as a progress key suffix.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

func (t *Tracker) set(ctx context.Context, id string, fields map[string]any) error {
	if !ValidID(id) {
		return ErrInvalidID
	}
	key := fmt.Sprintf(KeyFormat, id)
	fields["updated_at"] = t.now().UTC().Format(time.RFC3339Nano)

	pipe := t.rdb.TxPipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, t.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// Start marks an upload as begun at 0%.
func (t *Tracker) Start(ctx context.Context, id string) error {
	return t.set(ctx, id, map[string]any{"percent": 0, "status": StatusUploading})
}

// Update records the current percentage.
func (t *Tracker) Update(ctx context.Context, id string, percent int) error {
	return t.set(ctx, id, map[string]any{"percent": percent})
}

// Stored marks the binary as confirmed by the object store.
func (t *Tracker) Stored(ctx context.Context, id string) error {
	return t.set(ctx, id, map[string]any{"percent": 100, "status": StatusStored})
}

// Committed marks the report record as written.
func (t *Tracker) Committed(ctx context.Context, id, reportID string) error {
	return t.set(ctx, id, map[string]any{"status": StatusCommitted, "report_id": reportID})
}

// Failed marks the submission as failed.
func (t *Tracker) Failed(ctx context.Context, id string) error {
	return t.set(ctx, id, map[string]any{"status": StatusFailed})
}

// Get returns ErrNotFound for unknown or expired ids.
func (t *Tracker) Get(ctx context.Context, id string) (*Status, error) {
	if !ValidID(id) {
		return nil, ErrInvalidID
	}
	vals, err := t.rdb.HGetAll(ctx, fmt.Sprintf(KeyFormat, id)).Result()
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, ErrNotFound
	}

	s := &Status{ID: id, Status: vals["status"], ReportID: vals["report_id"]}
	s.Percent, _ = strconv.Atoi(vals["percent"])
	if ts, err := time.Parse(time.RFC3339Nano, vals["updated_at"]); err == nil {
		s.UpdatedAt = ts
	}
	return s, nil
}

// Reporter returns a progress callback that publishes under id. Publishing
// errors are logged; they never affect the upload.
func (t *Tracker) Reporter(ctx context.Context, id string) storage.ProgressFunc {
	return func(percent int) {
		if err := t.Update(ctx, id, percent); err != nil {
			log.Debugf("[Upload] Could not publish progress for %s: %v", id, err)
		}
	}
}
