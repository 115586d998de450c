package notify

import (
	"strings"

	"github.com/mazadclick/clientsync/internal/model"
)

// Bucket is the display category of a notification. Every notification
// belongs to exactly one bucket, decided purely by its type.
type Bucket int

const (
	// BucketBell collects bid/offer lifecycle notifications.
	BucketBell Bucket = iota
	// BucketChat collects conversation-related notifications.
	BucketChat
)

// Classify maps a notification type to its display bucket.
func Classify(t model.NotificationType) Bucket {
	switch t {
	case model.TypeChatCreated:
		return BucketChat
	default:
		if strings.HasPrefix(string(t), "MESSAGE_") {
			return BucketChat
		}
		return BucketBell
	}
}

// Split partitions items into the bell and chat buckets, preserving order.
func Split(items []model.Notification) (bell, chatItems []model.Notification) {
	for _, n := range items {
		if Classify(n.Type) == BucketChat {
			chatItems = append(chatItems, n)
		} else {
			bell = append(bell, n)
		}
	}
	return bell, chatItems
}
