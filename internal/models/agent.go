package models

import (
	"time"

	"github.com/google/uuid"
)

// Agent maturity levels, ordered from least to most trusted.
const (
	MaturityStudent    = "student"
	MaturityIntern     = "intern"
	MaturitySupervised = "supervised"
	MaturityAutonomous = "autonomous"
)

// maturityRank orders maturity levels for monotonicity checks.
// Unknown maturity strings rank below student.
var maturityRank = map[string]int{
	MaturityStudent:    1,
	MaturityIntern:     2,
	MaturitySupervised: 3,
	MaturityAutonomous: 4,
}

// MaturityRank returns the ordering rank of a maturity level (0 for unknown).
func MaturityRank(maturity string) int {
	return maturityRank[maturity]
}

// ValidMaturity reports whether maturity is one of the four known levels.
func ValidMaturity(maturity string) bool {
	_, ok := maturityRank[maturity]
	return ok
}

// MaxComplexity returns the highest action complexity the maturity level may
// perform directly: student 1, intern 2, supervised 3, autonomous 4.
func MaxComplexity(maturity string) int {
	return maturityRank[maturity]
}

// ConfidenceInBand reports whether a confidence score falls inside the
// expected band for the maturity level. Enforced by promotion, not by
// permission checks.
func ConfidenceInBand(maturity string, confidence float64) bool {
	switch maturity {
	case MaturityStudent:
		return confidence >= 0 && confidence < 0.5
	case MaturityIntern:
		return confidence >= 0.5 && confidence < 0.7
	case MaturitySupervised:
		return confidence >= 0.7 && confidence < 0.9
	case MaturityAutonomous:
		return confidence >= 0.9 && confidence <= 1
	}
	return false
}

type Agent struct {
	ID              uuid.UUID `json:"id"`
	WorkspaceID     uuid.UUID `json:"workspace_id"`
	Name            string    `json:"name"`
	Category        string    `json:"category"` // domain tag: Finance, Sales, Support, ...
	Status          string    `json:"status"`   // maturity level
	ConfidenceScore float64   `json:"confidence_score"`
	Capabilities    []string  `json:"capabilities,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
