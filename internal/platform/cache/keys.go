package cache

import (
	"fmt"

	"github.com/google/uuid"
)

// Analytics entry names cached per student.
const (
	EntryComprehensive = "comprehensive"
	EntryTrends        = "trends"
	EntryPatterns      = "patterns"
	EntryBenchmarking  = "benchmarking"
	EntryAcademicCast  = "academic-forecast"
	EntryEPRCast       = "epr-forecast"
)

var analyticsEntries = []string{
	EntryComprehensive,
	EntryTrends,
	EntryPatterns,
	EntryBenchmarking,
	EntryAcademicCast,
	EntryEPRCast,
}

func AnalyticsKey(studentID uuid.UUID, entry string) string {
	return fmt.Sprintf("epr:analytics:%s:%s", studentID, entry)
}

// StudentAnalyticsKeys lists every analytics key owned by studentID.
func StudentAnalyticsKeys(studentID uuid.UUID) []string {
	out := make([]string, 0, len(analyticsEntries))
	for _, e := range analyticsEntries {
		out = append(out, AnalyticsKey(studentID, e))
	}
	return out
}

// RecomputeDebounceKey marks that a full rebuild already ran recently.
func RecomputeDebounceKey(studentID uuid.UUID) string {
	return fmt.Sprintf("epr:recompute:full:%s", studentID)
}
