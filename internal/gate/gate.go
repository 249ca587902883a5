// Package gate implements the pipeline's throttles: the per-URL audit
// rate limit, the daily outreach send budget, and the business-hours
// window. Counters live in Redis so gates hold across restarts and
// across concurrently running processors.
package gate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"outreach-pipeline/internal/common/config"

	"github.com/redis/go-redis/v9"
)

type Gates struct {
	rdb *redis.Client
	cfg config.PipelineConfig
	loc *time.Location
}

func New(rdb *redis.Client, cfg config.PipelineConfig) (*Gates, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}
	return &Gates{rdb: rdb, cfg: cfg, loc: loc}, nil
}

// AllowAudit consumes one audit slot for the URL and reports whether the
// per-URL window still has room. The counter expires with the window, so
// a denied URL frees up again without any cleanup job.
func (g *Gates) AllowAudit(ctx context.Context, rawURL string) (bool, error) {
	key := auditKey(rawURL)
	window := time.Duration(g.cfg.AuditWindowHours) * time.Hour

	count, err := g.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("audit gate incr: %w", err)
	}
	if count == 1 {
		if err := g.rdb.Expire(ctx, key, window).Err(); err != nil {
			return false, fmt.Errorf("audit gate expire: %w", err)
		}
	}
	return count <= int64(g.cfg.AuditsPerURL), nil
}

// UnderDailyCap reports whether today's send counter is below the cap.
// It is a cheap read used for tick gating and reason reporting;
// ReserveSend is the authoritative, race-free consumption.
func (g *Gates) UnderDailyCap(ctx context.Context, now time.Time) (bool, error) {
	count, err := g.rdb.Get(ctx, sendKey(now.In(g.loc))).Int64()
	if err == redis.Nil {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("send budget get: %w", err)
	}
	return count < int64(g.cfg.DailySendCap), nil
}

// ReserveSend consumes one slot of today's send budget and reports
// whether the cap still had room. Increment and compare happen on the
// same INCR result, so two processors racing for the last slot cannot
// both win. Callers release the slot if no send ends up happening. The
// key outlives the day by a margin so a processor straddling midnight
// still reads it.
func (g *Gates) ReserveSend(ctx context.Context, now time.Time) (bool, error) {
	key := sendKey(now.In(g.loc))
	count, err := g.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("send budget incr: %w", err)
	}
	if count == 1 {
		if err := g.rdb.Expire(ctx, key, 48*time.Hour).Err(); err != nil {
			return false, fmt.Errorf("send budget expire: %w", err)
		}
	}
	return count <= int64(g.cfg.DailySendCap), nil
}

// ReleaseSend returns a reserved slot to today's budget.
func (g *Gates) ReleaseSend(ctx context.Context, now time.Time) error {
	if err := g.rdb.Decr(ctx, sendKey(now.In(g.loc))).Err(); err != nil {
		return fmt.Errorf("send budget decr: %w", err)
	}
	return nil
}

// InBusinessHours reports whether now falls inside the configured
// weekday send window, evaluated in the pipeline's timezone.
func (g *Gates) InBusinessHours(now time.Time) bool {
	local := now.In(g.loc)
	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	hour := local.Hour()
	return hour >= g.cfg.BusinessHourStart && hour < g.cfg.BusinessHourEnd
}

// CanProcess is the queue processor's combined gate: business hours AND
// under the daily cap. A closed gate is a successful no-op, not an
// error, so reason carries the explanation for the response body.
func (g *Gates) CanProcess(ctx context.Context, now time.Time) (ok bool, reason string, err error) {
	if !g.InBusinessHours(now) {
		return false, "outside business hours", nil
	}
	under, err := g.UnderDailyCap(ctx, now)
	if err != nil {
		return false, "", err
	}
	if !under {
		return false, "daily send cap reached", nil
	}
	return true, "", nil
}

func auditKey(rawURL string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(rawURL))))
	return "gate:audit:" + hex.EncodeToString(sum[:8])
}

func sendKey(localNow time.Time) string {
	return "gate:sent:" + localNow.Format("2006-01-02")
}
