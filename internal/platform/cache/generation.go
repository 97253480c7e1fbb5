package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// GenerationKey holds the token that versions a student's analytics entries.
// It carries no TTL; an expired token would let entries written under an
// older one become readable again.
func GenerationKey(studentID uuid.UUID) string {
	return fmt.Sprintf("epr:analytics:%s:gen", studentID)
}

// Generation returns the student's analytics generation, "" until the first
// invalidation.
func Generation(ctx context.Context, c Cache, studentID uuid.UUID) (string, error) {
	b, err := c.Get(ctx, GenerationKey(studentID))
	if errors.Is(err, ErrMiss) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VersionedAnalyticsKey is AnalyticsKey scoped to generation gen.
func VersionedAnalyticsKey(studentID uuid.UUID, entry, gen string) string {
	if gen == "" {
		return AnalyticsKey(studentID, entry)
	}
	return AnalyticsKey(studentID, entry) + "@" + gen
}

// InvalidateStudent moves the student to a new generation and drops the
// entries of the previous one. A build that read data before the call
// stores its result under the old generation, where no reader looks.
func InvalidateStudent(ctx context.Context, c Cache, studentID uuid.UUID) error {
	prev, err := Generation(ctx, c, studentID)
	if err != nil {
		return fmt.Errorf("read analytics generation: %w", err)
	}
	if err := c.Set(ctx, GenerationKey(studentID), []byte(uuid.NewString()), 0); err != nil {
		return fmt.Errorf("advance analytics generation: %w", err)
	}
	keys := StudentAnalyticsKeys(studentID)
	if prev != "" {
		for _, e := range analyticsEntries {
			keys = append(keys, VersionedAnalyticsKey(studentID, e, prev))
		}
	}
	return c.Delete(ctx, keys...)
}
