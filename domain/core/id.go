package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to v4 if v7 fails
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// StudyLabel identifies a single study within a meta-analysis
type StudyLabel string

func (l StudyLabel) String() string { return string(l) }

// ParseStudyLabel parses a string into a StudyLabel
func ParseStudyLabel(s string) (StudyLabel, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("study label cannot be empty")
	}
	return StudyLabel(s), nil
}

// Artifact represents any output of the system
type Artifact struct {
	ID        ID           `json:"id"`
	Kind      ArtifactKind `json:"kind"`
	Payload   interface{}  `json:"payload"`
	CreatedAt Timestamp    `json:"created_at"`
}

// ArtifactKind defines types of artifacts
type ArtifactKind string

const (
	// ArtifactSensitivityReport is a rendered leave-one-out analysis report.
	ArtifactSensitivityReport ArtifactKind = "sensitivity_report"
	// ArtifactCumulativeReport is a rendered cumulative analysis report.
	ArtifactCumulativeReport ArtifactKind = "cumulative_report"
	// ArtifactEffectSummary captures descriptive statistics of study effects.
	ArtifactEffectSummary ArtifactKind = "effect_summary"
)
