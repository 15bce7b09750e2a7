// Package validation holds the pure admission checks run before a file may
// enter the batch queue. Nothing here touches the store or has side effects.
package validation

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
)

// RejectReason classifies why a file was refused at admission time.
type RejectReason string

const (
	ReasonType     RejectReason = "type"
	ReasonSize     RejectReason = "size"
	ReasonEmpty    RejectReason = "empty"
	ReasonCapacity RejectReason = "capacity"
)

// Rejection reports one refused file back to the caller. Rejected files never
// enter the item list.
type Rejection struct {
	FileName string       `json:"fileName"`
	Reason   RejectReason `json:"reason"`
	Message  string       `json:"message"`
}

// allowedMimeTypes are the declared MIME types accepted without looking at
// the extension.
var allowedMimeTypes = map[string]bool{
	"text/csv":                 true,
	"application/csv":          true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
}

// allowedExtensions is the fallback whitelist used when the MIME type is
// absent or generic (browsers commonly send application/octet-stream).
var allowedExtensions = map[string]bool{
	".csv":  true,
	".xlsx": true,
	".xls":  true,
}

// Validator runs the per-file admission checks. The batch-level slot check is
// evaluated by the store, not here.
type Validator struct {
	maxFileSize int64
}

// NewValidator creates a validator with the given per-file byte ceiling.
func NewValidator(maxFileSize int64) *Validator {
	return &Validator{maxFileSize: maxFileSize}
}

// Check returns nil when the file is admissible, or a Rejection describing
// why it is not. Checks run in order: type, then size.
func (v *Validator) Check(fileName, mimeType string, size int64) *Rejection {
	if !typeAllowed(fileName, mimeType) {
		return &Rejection{
			FileName: fileName,
			Reason:   ReasonType,
			Message:  "unsupported file type: only CSV, XLSX and XLS files are accepted",
		}
	}
	if size > v.maxFileSize {
		return &Rejection{
			FileName: fileName,
			Reason:   ReasonSize,
			Message:  fmt.Sprintf("file exceeds the %s size limit", humanize.Bytes(uint64(v.maxFileSize))),
		}
	}
	return nil
}

// typeAllowed accepts a whitelisted MIME type, falling back to the extension
// when the MIME type is missing or generic.
func typeAllowed(fileName, mimeType string) bool {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if idx := strings.Index(mt, ";"); idx >= 0 {
		mt = strings.TrimSpace(mt[:idx])
	}
	if mt != "" && mt != "application/octet-stream" {
		if allowedMimeTypes[mt] {
			return true
		}
		// Declared type not in the whitelist; still allow a whitelisted
		// extension since many clients mislabel spreadsheet uploads.
	}
	ext := strings.ToLower(filepath.Ext(fileName))
	return allowedExtensions[ext]
}

// CapacityRejection builds the rejection used when a batch overflows the
// remaining queue slots.
func CapacityRejection(fileName string, dropped int) Rejection {
	return Rejection{
		FileName: fileName,
		Reason:   ReasonCapacity,
		Message:  fmt.Sprintf("queue is full: %d file(s) dropped", dropped),
	}
}
