package archive

import (
	"time"

	"github.com/wolfman30/lawfirm-intake/internal/leads"
)

// SubmissionSnapshot is the document mirrored to S3 for one record.
type SubmissionSnapshot struct {
	Version    string        `json:"version"` // "1"
	MirroredAt time.Time     `json:"mirrored_at"`
	Record     *leads.Record `json:"record"`
}

// ManifestEntry is one JSONL line in the monthly manifest file.
type ManifestEntry struct {
	RecordID          string `json:"record_id"`
	S3Key             string `json:"s3_key"`
	ContactHash       string `json:"contact_hash"`
	AcquisitionSource string `json:"acquisition_source"`
	Status            string `json:"status"`
	Attempts          int    `json:"attempts"`
	IsDuplicate       bool   `json:"is_duplicate"`
	MirroredAt        string `json:"mirrored_at"`
}
