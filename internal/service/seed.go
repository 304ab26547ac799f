package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Seed inserts the two demo projects: one long overdue and one due in three
// days. It does not check for earlier copies.
func (t *Tracker) Seed(ctx context.Context) ([]int64, error) {
	seeds := []struct {
		name     string
		deadline string
	}{
		{"Legacy System Migration", "2024-01-01"},
		{"FairShare Final Launch", t.Today().AddDays(3).String()},
	}

	ids := make([]int64, 0, len(seeds))
	for _, s := range seeds {
		id, err := t.CreateProject(ctx, s.name, s.deadline)
		if err != nil {
			return ids, fmt.Errorf("seed %q: %w", s.name, err)
		}
		t.logger.Info("Seeded project", zap.Int64("project_id", id), zap.String("name", s.name), zap.String("deadline", s.deadline))
		ids = append(ids, id)
	}
	return ids, nil
}
