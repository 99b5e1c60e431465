package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/pauljones0/smart-deals-bot/internal/models"
)

const firestoreCollection = "posted_deals"

// FirestoreBackend keeps posted ids as documents in the posted_deals
// collection. Document ids are derived from the deal URL since URLs may
// contain characters Firestore does not allow in ids.
type FirestoreBackend struct {
	client *firestore.Client
}

func NewFirestore(ctx context.Context, projectID string) (*FirestoreBackend, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("firestore.NewClient: %w", err)
	}
	return &FirestoreBackend{client: client}, nil
}

func (c *FirestoreBackend) Close() error {
	return c.client.Close()
}

// DocID maps a deal URL to its document id.
func DocID(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

func (c *FirestoreBackend) Load(ctx context.Context) ([]string, error) {
	n, err := c.Count(ctx)
	if err != nil {
		slog.Debug("Posted deal count unavailable", "error", err)
	}

	iter := c.client.Collection(firestoreCollection).Documents(ctx)
	defer iter.Stop()

	ids := make([]string, 0, n)
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return ids, nil
			}
			return nil, fmt.Errorf("failed to iterate posted deals: %w", err)
		}

		var posted models.PostedDeal
		if err := doc.DataTo(&posted); err != nil {
			slog.Warn("Skipping malformed posted deal", "id", doc.Ref.ID, "error", err)
			continue
		}
		ids = append(ids, posted.URL)
	}
	return ids, nil
}

// Append writes one document per id through a BulkWriter. Set overwrites, so
// replaying an id is harmless.
func (c *FirestoreBackend) Append(ctx context.Context, ids []string) error {
	collectionRef := c.client.Collection(firestoreCollection)
	bulkWriter := c.client.BulkWriter(ctx)

	now := time.Now().UTC()
	jobs := make([]*firestore.BulkWriterJob, 0, len(ids))
	for _, id := range ids {
		job, err := bulkWriter.Set(collectionRef.Doc(DocID(id)), models.PostedDeal{URL: id, PostedAt: now})
		if err != nil {
			bulkWriter.End()
			return fmt.Errorf("queue posted deal %s: %w", id, err)
		}
		jobs = append(jobs, job)
	}
	bulkWriter.End()

	var errs []error
	for i, job := range jobs {
		if _, err := job.Results(); err != nil {
			errs = append(errs, fmt.Errorf("write posted deal %s: %w", ids[i], err))
		}
	}
	return errors.Join(errs...)
}

// Count returns the number of posted deals using a server-side aggregation.
func (c *FirestoreBackend) Count(ctx context.Context) (int, error) {
	result, err := c.client.Collection(firestoreCollection).NewAggregationQuery().WithCount("all").Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count posted deals: %w", err)
	}
	countValue, ok := result["all"]
	if !ok {
		return 0, fmt.Errorf("count aggregation result was invalid: 'all' key missing")
	}
	return aggregateCount(countValue)
}

func aggregateCount(v interface{}) (int, error) {
	switch val := v.(type) {
	case int64:
		return int(val), nil
	case *firestorepb.Value:
		return int(val.GetIntegerValue()), nil
	default:
		return 0, fmt.Errorf("count aggregation result has unexpected type %T", v)
	}
}
