package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/lexi-backend/internal/app"
	"github.com/yungbote/lexi-backend/internal/jobs/reindex"
)

const drainIdle = 2 * time.Second

func init() {
	var sweep bool
	cmd := &cobra.Command{
		Use:   "reindex [document-id...]",
		Short: "Re-vectorize documents now, or sweep every unindexed one",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !sweep && len(args) == 0 {
				return fmt.Errorf("pass document ids or --sweep")
			}
			ids := make([]uuid.UUID, 0, len(args))
			for _, raw := range args {
				id, err := uuid.Parse(raw)
				if err != nil {
					return fmt.Errorf("invalid document id %q: %w", raw, err)
				}
				ids = append(ids, id)
			}

			ctx := cmd.Context()
			a, err := app.New(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			if sweep {
				n, err := a.Services.ReindexSweeper.SweepOnce(ctx)
				if err != nil {
					return err
				}
				log.Info("Sweep enqueued documents", "count", n)
				ids = append(ids, drain(ctx, a.Clients.Queue)...)
			}

			failed := 0
			for _, id := range ids {
				outcome := a.Services.ReindexWorker.Process(ctx, id)
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", id, outcome)
				if outcome != "ok" {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d documents failed to reindex", failed, len(ids))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&sweep, "sweep", false, "Enqueue every document still awaiting vectors")
	RootCmd.AddCommand(cmd)
}

// drain pulls queued ids until the queue stays empty for drainIdle.
func drain(ctx context.Context, q reindex.Queue) []uuid.UUID {
	var out []uuid.UUID
	for {
		waitCtx, cancel := context.WithTimeout(ctx, drainIdle)
		id, err := q.Dequeue(waitCtx)
		cancel()
		if err != nil {
			return out
		}
		out = append(out, id)
	}
}
