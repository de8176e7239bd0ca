package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/baechuer/property-recs/internal/domain"
	"github.com/redis/go-redis/v9"
)

// claimScript sets every key for the window unless any of them already
// exists. Returns 1 when the claim was taken.
var claimScript = redis.NewScript(`
for _, k in ipairs(KEYS) do
	if redis.call('EXISTS', k) == 1 then
		return 0
	end
end
for _, k in ipairs(KEYS) do
	redis.call('SET', k, ARGV[1], 'PX', ARGV[2])
end
return 1
`)

// ViewGuard dedups views with one key per (listing, identity) that lives
// for the dedup window. Every view claims its address key, authenticated
// views also claim their user key.
type ViewGuard struct {
	client *redis.Client
	window time.Duration
}

func NewViewGuard(client *redis.Client, window time.Duration) *ViewGuard {
	return &ViewGuard{client: client, window: window}
}

func (g *ViewGuard) Keys(listingID int64, viewer domain.Viewer) []string {
	ids := viewer.Keys()
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = fmt.Sprintf("recs:view:%d:%s", listingID, id)
	}
	return keys
}

func (g *ViewGuard) ShouldRecordView(ctx context.Context, listingID int64, userID *int64, sourceAddress string) (bool, error) {
	keys := g.Keys(listingID, domain.Viewer{UserID: userID, SourceAddress: sourceAddress})
	if len(keys) == 0 {
		return true, nil
	}
	n, err := claimScript.Run(ctx, g.client, keys, time.Now().Unix(), g.window.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("view dedup claim: %w", err)
	}
	return n == 1, nil
}

// Release drops a claim taken by ShouldRecordView whose view was never stored.
func (g *ViewGuard) Release(ctx context.Context, listingID int64, userID *int64, sourceAddress string) error {
	keys := g.Keys(listingID, domain.Viewer{UserID: userID, SourceAddress: sourceAddress})
	if len(keys) == 0 {
		return nil
	}
	if err := g.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("view dedup release: %w", err)
	}
	return nil
}
