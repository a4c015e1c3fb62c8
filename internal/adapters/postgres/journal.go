package postgres

import (
	"context"

	"github.com/mbeltza/tripscribe/internal/core/domain"
)

// JournalSink implements ports.JournalSink on top of the fix repo, the
// durable append surface the tracking pipeline flushes into.
type JournalSink struct {
	fixes *FixRepo
}

func NewJournalSink(fixes *FixRepo) *JournalSink {
	return &JournalSink{fixes: fixes}
}

func (s *JournalSink) AppendFix(ctx context.Context, fix *domain.LocationFix) error {
	return s.fixes.Insert(ctx, fix)
}
