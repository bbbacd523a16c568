package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/wolfman30/lawfirm-intake/internal/leads"
)

// S3API is the subset of the S3 client used by Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Store mirrors resolved lead records to S3. The mirror is not authoritative;
// the record store remains the source of truth.
type Store struct {
	bucket   string
	s3Client S3API
	logger   *slog.Logger
	now      func() time.Time
}

// NewStore creates an archive Store. If bucket is empty, all operations are no-ops.
func NewStore(s3Client S3API, bucket string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{bucket: bucket, s3Client: s3Client, logger: logger, now: time.Now}
}

// Enabled returns true if mirroring is configured (bucket is set).
func (s *Store) Enabled() bool {
	return s != nil && s.bucket != "" && s.s3Client != nil
}

// SnapshotKey is the object key of a record's snapshot, partitioned by creation date.
func SnapshotKey(rec *leads.Record) string {
	created := rec.CreatedAt.UTC()
	return fmt.Sprintf("submissions/v1/by-date/%d/%02d/%02d/%s.json",
		created.Year(), created.Month(), created.Day(), rec.ID)
}

// MirrorRecord writes rec as JSON to S3 and appends to the manifest.
// Writing the same record again overwrites its snapshot.
func (s *Store) MirrorRecord(ctx context.Context, rec *leads.Record) error {
	if !s.Enabled() || rec == nil {
		return nil
	}

	now := s.now().UTC()
	data, err := json.Marshal(SubmissionSnapshot{Version: "1", MirroredAt: now, Record: rec})
	if err != nil {
		return fmt.Errorf("archive: marshal record: %w", err)
	}

	key := SnapshotKey(rec)
	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("archive: s3 put %s: %w", key, err)
	}

	s.logger.Info("mirrored lead record to S3",
		"record_id", rec.ID,
		"s3_key", key,
		"status", rec.Status,
	)

	entry := ManifestEntry{
		RecordID:          rec.ID,
		S3Key:             key,
		ContactHash:       HashContact(rec.Contact),
		AcquisitionSource: rec.AcquisitionSource,
		Status:            string(rec.Status),
		Attempts:          rec.Attempts,
		IsDuplicate:       rec.IsDuplicate,
		MirroredAt:        now.Format(time.RFC3339),
	}
	if err := s.AppendManifest(ctx, entry); err != nil {
		s.logger.Warn("failed to append manifest", "error", err, "record_id", rec.ID)
	}
	return nil
}

// AppendManifest appends a JSONL line to the monthly manifest file.
// Uses read-modify-write since S3 doesn't support append.
func (s *Store) AppendManifest(ctx context.Context, entry ManifestEntry) error {
	if !s.Enabled() {
		return nil
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("archive: marshal manifest entry: %w", err)
	}

	now := s.now().UTC()
	manifestKey := fmt.Sprintf("submissions/v1/manifests/%d-%02d.jsonl", now.Year(), now.Month())

	var existing []byte
	getResp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(manifestKey),
	})
	switch {
	case err == nil:
		existing, err = io.ReadAll(getResp.Body)
		getResp.Body.Close()
		if err != nil {
			return fmt.Errorf("archive: read manifest: %w", err)
		}
	case isNotFound(err):
		s.logger.Debug("manifest not found, creating new", "key", manifestKey)
	default:
		return fmt.Errorf("archive: s3 get manifest: %w", err)
	}

	var buf bytes.Buffer
	if len(existing) > 0 {
		buf.Write(existing)
		if existing[len(existing)-1] != '\n' {
			buf.WriteByte('\n')
		}
	}
	buf.Write(line)
	buf.WriteByte('\n')

	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(manifestKey),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("archive: s3 put manifest: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	var nsk *s3types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
