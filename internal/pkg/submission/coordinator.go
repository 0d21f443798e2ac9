package submission

import (
	"bytes"
	"context"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/trashmap/trashmap-api/app/models"
	"github.com/trashmap/trashmap-api/app/repository"
	"github.com/trashmap/trashmap-api/internal/pkg/storage"
)

const (
	MetadataUploadProfile = "upload-profile"
	MetadataReportID      = "report-id"
)

// Coordinator uploads the binary and then commits the record. The record
// is never written unless the object store confirmed the upload.
type Coordinator struct {
	store   storage.ObjectStore
	reports repository.ReportRepository
	profile string
	now     func() time.Time
	newID   func() string
}

func NewCoordinator(store storage.ObjectStore, reports repository.ReportRepository, uploadProfile string) *Coordinator {
	return &Coordinator{
		store:   store,
		reports: reports,
		profile: uploadProfile,
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
	}
}

// Submit returns *UploadError when the object store rejects the binary and
// *PersistError when the record write fails after a successful upload.
// onProgress sees at most 99 while bytes are sent; 100 is reported only
// once the object store has confirmed the upload.
func (c *Coordinator) Submit(ctx context.Context, bin Binary, d Draft, onProgress storage.ProgressFunc) (*models.Report, error) {
	if !d.Resolved() {
		return nil, invalid("draft has no resolved location")
	}
	if len(bin.Data) == 0 {
		return nil, invalid("empty image")
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}

	id := c.newID()
	key := storage.ObjectKey(id, bin.Ext(), c.now())

	body := storage.NewProgressReader(bytes.NewReader(bin.Data), bin.Size(), transferProgress(onProgress))
	obj, err := c.store.Put(ctx, storage.PutInput{
		Key:         key,
		Body:        body,
		Size:        bin.Size(),
		ContentType: bin.ContentType,
		Metadata: map[string]string{
			MetadataUploadProfile: c.profile,
			MetadataReportID:      id,
		},
	})
	if err != nil {
		log.Errorf("[Upload] Failed to store %s: %v", key, err)
		return nil, &UploadError{Key: key, Err: err}
	}
	if onProgress != nil {
		onProgress(100)
	}
	log.Infof("[Upload] Stored %s (%d bytes)", obj.Key, obj.Size)

	report, err := d.WithImage(obj).Report(id, c.now())
	if err != nil {
		log.Warnf("[Upload] Object %s orphaned, report %s invalid: %v", obj.Key, id, err)
		return nil, &PersistError{ReportID: id, OrphanKey: obj.Key, Err: err}
	}

	if err := c.reports.Create(ctx, report); err != nil {
		log.Warnf("[Upload] Object %s orphaned, could not persist report %s: %v", obj.Key, id, err)
		return nil, &PersistError{ReportID: id, OrphanKey: obj.Key, Err: err}
	}

	log.Infof("[Upload] Committed report %s (%s, severity %d)", report.ID, report.LocationSource, report.SeverityLevel)
	return report, nil
}

// transferProgress holds back 100 until Put returns.
func transferProgress(fn storage.ProgressFunc) storage.ProgressFunc {
	if fn == nil {
		return nil
	}
	return func(percent int) {
		if percent >= 100 {
			percent = 99
		}
		fn(percent)
	}
}
