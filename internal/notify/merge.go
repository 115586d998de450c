package notify

import (
	"context"
	"fmt"
	"sort"

	"github.com/mazadclick/clientsync/internal/model"
)

// Tagged is one merged-view entry carrying the source it came from, so a
// mark-read on the merged list routes back to the originating fetcher.
type Tagged struct {
	Source       Source
	Notification model.Notification
}

// Merge projects several fetchers' lists into one view sorted by CreatedAt
// descending. The projection is computed from copies; nothing is written
// back to any fetcher.
func Merge(fetchers ...*Fetcher) []Tagged {
	var out []Tagged
	for _, f := range fetchers {
		for _, n := range f.Items() {
			out = append(out, Tagged{Source: f.Source(), Notification: n})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Notification.CreatedAt.After(out[j].Notification.CreatedAt)
	})
	return out
}

// MarkTaggedRead routes a merged-view mark-read to the fetcher the item
// originated from.
func MarkTaggedRead(ctx context.Context, t Tagged, fetchers ...*Fetcher) error {
	for _, f := range fetchers {
		if f.Source() == t.Source {
			return f.MarkRead(ctx, t.Notification.ID)
		}
	}
	return fmt.Errorf("mark read: no fetcher for source %q", t.Source)
}
