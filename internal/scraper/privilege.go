package scraper

import (
	"context"

	"github.com/x5gtrn/tg-channel-scraper/internal/logger"
	"github.com/x5gtrn/tg-channel-scraper/internal/telegram"
)

// AdminAPI is the remote "does this user hold an elevated role" capability.
type AdminAPI interface {
	IsAdmin(ctx context.Context, ch *telegram.Channel, userID int64) (bool, error)
}

// PrivilegeChecker decides whether an author's posts qualify for export.
// Successful lookups are memoized for the lifetime of the checker (one
// run); failed lookups are not, so a transient error only affects the
// lookups it actually hit.
type PrivilegeChecker struct {
	api  AdminAPI
	memo map[int64]bool
	log  *logger.Logger
}

// NewPrivilegeChecker creates a checker with an empty per-run memo.
func NewPrivilegeChecker(api AdminAPI) *PrivilegeChecker {
	return &PrivilegeChecker{
		api:  api,
		memo: make(map[int64]bool),
		log:  logger.Get(),
	}
}

// IsPrivileged reports whether the author currently holds admin or owner
// status in the channel. A nil author id means the post was signed by the
// channel itself, which requires admin rights, so it qualifies.
//
// A lookup failure is degraded, never fatal: it logs a warning and treats
// the author as not privileged for this one check.
func (p *PrivilegeChecker) IsPrivileged(ctx context.Context, ch *telegram.Channel, authorID *int64) bool {
	if authorID == nil {
		return true
	}

	if privileged, ok := p.memo[*authorID]; ok {
		return privileged
	}

	privileged, err := p.api.IsAdmin(ctx, ch, *authorID)
	if err != nil {
		p.log.Warn().Err(err).Int64("user_id", *authorID).
			Msg("could not check admin status, excluding this post")
		return false
	}

	p.memo[*authorID] = privileged
	return privileged
}
