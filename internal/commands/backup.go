package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/moneymngr/moneymngr/internal/backup"
)

var errNeedsYes = errors.New("this replaces the local ledger; re-run with --yes")

func newBackupCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Push the ledger to the backup store or restore it",
	}

	push := &cobra.Command{
		Use:   "push",
		Short: "Upload the whole ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app) error {
				svc, _, err := a.backup(ctx)
				if err != nil {
					return err
				}
				c, err := svc.Push(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Pushed %s\n", describeCounts(c))
				return nil
			})
		},
	}

	var yes bool
	pull := &cobra.Command{
		Use:   "pull",
		Short: "Replace the local ledger with the latest backup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errNeedsYes
			}
			return opts.run(cmd, func(ctx context.Context, a *app) error {
				svc, _, err := a.backup(ctx)
				if err != nil {
					return err
				}
				c, err := svc.Restore(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Restored %s\n", describeCounts(c))
				return nil
			})
		},
	}
	pull.Flags().BoolVar(&yes, "yes", false, "confirm replacing the local ledger")

	cmd.AddCommand(push, pull)
	return cmd
}

func describeCounts(c backup.Counts) string {
	return fmt.Sprintf("%d accounts, %d categories, %d transactions", c.Accounts, c.Categories, c.Transactions)
}

func newSnapshotCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Keep named copies of the ledger",
	}

	withSnapshots := func(cmd *cobra.Command, fn func(ctx context.Context, a *app, svc *backup.Service, snaps *backup.SnapshotStore) error) error {
		return opts.run(cmd, func(ctx context.Context, a *app) error {
			svc, snaps, err := a.backup(ctx)
			if err != nil {
				return err
			}
			return fn(ctx, a, svc, snaps)
		})
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Store a snapshot of the current ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSnapshots(cmd, func(ctx context.Context, a *app, svc *backup.Service, snaps *backup.SnapshotStore) error {
				info, err := svc.Snapshot(ctx, snaps)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Created %s (%d bytes)\n", info.ID, info.Size)
				return nil
			})
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List snapshots, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSnapshots(cmd, func(ctx context.Context, a *app, _ *backup.Service, snaps *backup.SnapshotStore) error {
				all, err := snaps.List(ctx)
				if err != nil {
					return err
				}
				if len(all) == 0 {
					fmt.Fprintln(a.out, "No snapshots")
				}
				for _, s := range all {
					fmt.Fprintf(a.out, "%s\t%d bytes\n", s.ID, s.Size)
				}
				return nil
			})
		},
	}

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show what a snapshot holds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSnapshots(cmd, func(ctx context.Context, a *app, _ *backup.Service, snaps *backup.SnapshotStore) error {
				p, err := snaps.Get(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "%s: %s, exported %s\n", args[0], describeCounts(p.Counts()), p.ExportedAt.Format("2006-01-02 15:04:05"))
				return nil
			})
		},
	}

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSnapshots(cmd, func(ctx context.Context, a *app, _ *backup.Service, snaps *backup.SnapshotStore) error {
				if err := snaps.Delete(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Deleted %s\n", args[0])
				return nil
			})
		},
	}

	var yes bool
	restore := &cobra.Command{
		Use:   "restore <id>",
		Short: "Replace the local ledger with a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errNeedsYes
			}
			return withSnapshots(cmd, func(ctx context.Context, a *app, svc *backup.Service, snaps *backup.SnapshotStore) error {
				c, err := svc.RestoreSnapshot(ctx, snaps, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Restored %s\n", describeCounts(c))
				return nil
			})
		},
	}
	restore.Flags().BoolVar(&yes, "yes", false, "confirm replacing the local ledger")

	cmd.AddCommand(create, list, get, del, restore)
	return cmd
}
