package cli

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/lexi-backend/internal/jobs/reindex"
)

func TestDrainReturnsQueuedIDsInOrder(t *testing.T) {
	ctx := context.Background()
	q := reindex.NewMemoryQueue(8)
	defer q.Close()

	want := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for _, id := range want {
		if err := q.Enqueue(ctx, id); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}

	got := drain(ctx, q)
	if len(got) != len(want) {
		t.Fatalf("drained: want=%d got=%d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("id[%d]: want=%s got=%s", i, want[i], got[i])
		}
	}
}

func TestReindexRequiresIDsOrSweep(t *testing.T) {
	cmd, _, err := RootCmd.Find([]string{"reindex"})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if err := cmd.RunE(cmd, nil); err == nil {
		t.Fatalf("RunE with no args: want error got=nil")
	}
}
