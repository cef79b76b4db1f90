package model

import "time"

// Artifact type constants.
const (
	ArtifactDocument = "document"
	ArtifactData     = "data"
	ArtifactImage    = "image"
	ArtifactCode     = "code"
	ArtifactMarkdown = "markdown"
)

// previewMarker is appended to preview_text when content is truncated.
const previewMarker = "..."

// Artifact is a discrete output produced by a task. Artifacts are immutable
// once attached to an execution.
type Artifact struct {
	ArtifactID   string    `json:"artifact_id"`
	ArtifactType string    `json:"artifact_type"`
	Filename     string    `json:"filename"`
	MimeType     string    `json:"mime_type"`
	SizeBytes    int       `json:"size_bytes"`
	Content      string    `json:"content,omitempty"`
	DownloadURL  string    `json:"download_url,omitempty"`
	PreviewText  string    `json:"preview_text,omitempty"`
	ProducedBy   string    `json:"produced_by"`
	ProducedAt   time.Time `json:"produced_at"`
}

// Preview returns content truncated to at most budget runes, with an explicit
// marker appended when truncation occurred.
func Preview(content string, budget int) string {
	runes := []rune(content)
	if len(runes) <= budget {
		return content
	}
	return string(runes[:budget]) + previewMarker
}
