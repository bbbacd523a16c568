package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/lawfirm-intake/internal/leads"
)

// mockS3Client records PutObject/GetObject calls for testing.
type mockS3Client struct {
	putCalls []putCall
	objects  map[string][]byte
	getErr   error
}

type putCall struct {
	bucket string
	key    string
	body   []byte
}

func newMockS3() *mockS3Client {
	return &mockS3Client{objects: make(map[string][]byte)}
}

func (m *mockS3Client) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, _ := io.ReadAll(input.Body)
	m.putCalls = append(m.putCalls, putCall{
		bucket: *input.Bucket,
		key:    *input.Key,
		body:   body,
	})
	m.objects[*input.Key] = body
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) GetObject(_ context.Context, input *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	data, ok := m.objects[*input.Key]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body: io.NopCloser(bytes.NewReader(data)),
	}, nil
}

func sampleRecord() *leads.Record {
	created := time.Date(2026, 2, 12, 15, 0, 0, 0, time.UTC)
	return &leads.Record{
		ID: "rec-123",
		Submission: leads.Submission{
			Contact:           "01012345678",
			ConsultationType:  leads.ConsultationPhone,
			AcquisitionSource: "naver",
			CustomerName:      "naver1",
		},
		Outcome: leads.Outcome{
			Status:         leads.StatusSubmitted,
			RemoteID:       "case-1",
			DuplicateCount: 1,
			Attempts:       1,
		},
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestStore_MirrorRecord(t *testing.T) {
	mock := newMockS3()
	store := NewStore(mock, "test-bucket", nil)
	store.now = func() time.Time { return time.Date(2026, 2, 12, 15, 1, 0, 0, time.UTC) }

	require.NoError(t, store.MirrorRecord(context.Background(), sampleRecord()))

	// snapshot + manifest
	require.Len(t, mock.putCalls, 2)
	assert.Equal(t, "test-bucket", mock.putCalls[0].bucket)
	assert.Equal(t, "submissions/v1/by-date/2026/02/12/rec-123.json", mock.putCalls[0].key)

	var decoded SubmissionSnapshot
	require.NoError(t, json.Unmarshal(mock.putCalls[0].body, &decoded))
	assert.Equal(t, "rec-123", decoded.Record.ID)
	assert.Equal(t, leads.StatusSubmitted, decoded.Record.Status)

	assert.Equal(t, "submissions/v1/manifests/2026-02.jsonl", mock.putCalls[1].key)
	var entry ManifestEntry
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(mock.putCalls[1].body), &entry))
	assert.Equal(t, "rec-123", entry.RecordID)
	assert.Equal(t, HashContact("01012345678"), entry.ContactHash)
	assert.NotContains(t, string(mock.putCalls[1].body), "01012345678")
}

func TestStore_Disabled(t *testing.T) {
	store := NewStore(nil, "", nil)
	assert.False(t, store.Enabled())
	assert.NoError(t, store.MirrorRecord(context.Background(), sampleRecord()))
}

func TestStore_ManifestAppend(t *testing.T) {
	mock := newMockS3()
	store := NewStore(mock, "test-bucket", nil)

	require.NoError(t, store.AppendManifest(context.Background(), ManifestEntry{RecordID: "r-1"}))
	require.NoError(t, store.AppendManifest(context.Background(), ManifestEntry{RecordID: "r-2"}))

	lastPut := mock.putCalls[len(mock.putCalls)-1]
	lines := bytes.Split(bytes.TrimSpace(lastPut.body), []byte("\n"))
	assert.Len(t, lines, 2)
}

func TestStore_ManifestReadFailureIsReturned(t *testing.T) {
	mock := newMockS3()
	mock.getErr = errors.New("access denied")
	store := NewStore(mock, "test-bucket", nil)

	err := store.AppendManifest(context.Background(), ManifestEntry{RecordID: "r-1"})
	assert.Error(t, err)
	assert.Empty(t, mock.putCalls, "manifest must not be overwritten after a failed read")
}

func TestHashContact(t *testing.T) {
	h1 := HashContact("01012345678")
	h2 := HashContact("01012345678")
	h3 := HashContact("01099998888")

	assert.Equal(t, h1, h2, "same input should produce same hash")
	assert.NotEqual(t, h1, h3, "different input should produce different hash")
	assert.Len(t, h1, 64, "SHA-256 hex should be 64 chars")
}
