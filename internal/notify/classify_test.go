package notify

import (
	"testing"

	"github.com/mazadclick/clientsync/internal/model"
)

func TestClassify_EveryTypeHasExactlyOneBucket(t *testing.T) {
	t.Parallel()
	want := map[model.NotificationType]Bucket{
		model.TypeBidCreated:      BucketBell,
		model.TypeBidEnded:        BucketBell,
		model.TypeBidWon:          BucketBell,
		model.TypeNewOffer:        BucketBell,
		model.TypeChatCreated:     BucketChat,
		model.TypeMessageAdmin:    BucketChat,
		model.TypeMessageReceived: BucketChat,
	}
	for typ, bucket := range want {
		if got := Classify(typ); got != bucket {
			t.Fatalf("Classify(%s) want %v, got %v", typ, bucket, got)
		}
	}
}

func TestSplit_DisjointBuckets(t *testing.T) {
	t.Parallel()
	items := []model.Notification{
		{ID: "n1", Type: model.TypeBidWon},
		{ID: "n2", Type: model.TypeChatCreated},
	}
	bell, chatItems := Split(items)
	if len(bell) != 1 || bell[0].ID != "n1" {
		t.Fatalf("bell bucket wrong: %+v", bell)
	}
	if len(chatItems) != 1 || chatItems[0].ID != "n2" {
		t.Fatalf("chat bucket wrong: %+v", chatItems)
	}
	if len(bell)+len(chatItems) != len(items) {
		t.Fatalf("buckets not a partition")
	}
}
