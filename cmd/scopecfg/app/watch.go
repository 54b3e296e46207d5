package app

import (
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/dshills/scopecfg/internal/config/notify"
)

func newWatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [section]",
		Short: "Report section file changes until interrupted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			var mu sync.Mutex
			report := func(change notify.Change) {
				mu.Lock()
				defer mu.Unlock()
				fmt.Fprintf(out, "%s %s %s\n", change.Type, change.Scope, change.Section)
			}

			var sub *notify.Subscription
			if len(args) == 1 {
				if _, err := a.cfg.Sections().Lookup(args[0]); err != nil {
					return err
				}
				sub = a.cfg.SubscribeSection(args[0], report)
			} else {
				sub = a.cfg.Subscribe(report)
			}
			defer sub.Unsubscribe()

			w, err := a.cfg.Watch(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = w.Stop() }()

			<-ctx.Done()
			return nil
		},
	}

	cmd.ValidArgsFunction = completeSection
	return cmd
}
