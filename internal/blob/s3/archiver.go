package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"arbscan/internal/domain"
)

// archiveBatch is how many records one archive object holds at most; a large
// backlog is drained across several objects rather than one huge upload.
const archiveBatch = 5000

// ArchiveStore is the slice of the opportunity store the archiver needs.
type ArchiveStore interface {
	QueryBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Opportunity, error)
	DeleteByID(ctx context.Context, ids []string) (int64, error)
}

// objectPutter is the slice of the S3 API the archiver uses.
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archiver implements domain.OpportunityArchiver: it pages aged records out
// of the store, uploads them as JSONL objects, and deletes each page by ID
// once its upload succeeded.
type Archiver struct {
	s3     objectPutter
	bucket string
	store  ArchiveStore
	logger *slog.Logger
	batch  int
}

// NewArchiver creates an Archiver writing to the client's bucket.
func NewArchiver(client *Client, store ArchiveStore, logger *slog.Logger) *Archiver {
	return &Archiver{
		s3:     client.s3,
		bucket: client.bucket,
		store:  store,
		logger: logger.With(slog.String("component", "archiver")),
		batch:  archiveBatch,
	}
}

// ArchiveOpportunities uploads all opportunities observed before the cutoff
// and removes them from the store. Returns the number of records archived.
// Deletion is by record ID so rows sharing the page's last timestamp but not
// yet uploaded stay in the store; a failed upload leaves everything from that
// page onward for the next run.
func (a *Archiver) ArchiveOpportunities(ctx context.Context, before time.Time) (int64, error) {
	var total int64
	part := 0
	for {
		opps, err := a.store.QueryBefore(ctx, before, a.batch)
		if err != nil {
			return total, fmt.Errorf("s3blob: archive query: %w", err)
		}
		if len(opps) == 0 {
			break
		}

		buf, err := marshalJSONL(opps)
		if err != nil {
			return total, fmt.Errorf("s3blob: archive marshal: %w", err)
		}

		key := archiveKey(before, part)
		if err := a.put(ctx, key, buf); err != nil {
			return total, err
		}
		a.logger.InfoContext(ctx, "archive object uploaded",
			slog.String("key", key), slog.Int("records", len(opps)))

		ids := make([]string, len(opps))
		for i, opp := range opps {
			ids[i] = opp.ID
		}
		deleted, err := a.store.DeleteByID(ctx, ids)
		if err != nil {
			return total, fmt.Errorf("s3blob: archive delete: %w", err)
		}
		total += deleted
		part++

		if len(opps) < a.batch {
			break
		}
	}
	return total, nil
}

func (a *Archiver) put(ctx context.Context, key string, body []byte) error {
	_, err := a.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("s3blob: put object %s: %w", key, err)
	}
	return nil
}

// archiveKey builds the object key, partitioned by the cutoff date:
//
//	archive/opportunities/2026-08-23/part-0000.jsonl
func archiveKey(before time.Time, part int) string {
	return fmt.Sprintf("archive/opportunities/%s/part-%04d.jsonl",
		before.UTC().Format("2006-01-02"), part)
}

// marshalJSONL serialises records as newline-delimited JSON.
func marshalJSONL(opps []domain.Opportunity) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for i, opp := range opps {
		if err := enc.Encode(opp); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.OpportunityArchiver = (*Archiver)(nil)
