package commands

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/moneymngr/moneymngr/internal/api"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the ledger over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app) error {
				if addr == "" {
					addr = a.cfg.API.Addr
				}
				svc, snaps, err := a.backup(ctx)
				if err != nil {
					return err
				}
				svc.Init(ctx)
				defer svc.Dispose()

				sug, err := a.suggester(ctx)
				if err != nil {
					a.log.Warn().Err(err).Msg("suggestions disabled")
				}
				deps := api.Deps{
					Accounts:   a.accounts,
					Categories: a.categories,
					Journal:    a.journal,
					History:    a.history,
					Importer:   a.importer,
					Backup:     svc,
					Snapshots:  snaps,
					MagicBox:   a.magic,
					Suggester:  sug,
					Evaluator:  a.eval,
					Location:   a.loc,
				}

				srv := &http.Server{
					Addr:              addr,
					Handler:           api.NewServer(deps, a.log).Handler(),
					ReadHeaderTimeout: 10 * time.Second,
				}
				errc := make(chan error, 1)
				go func() {
					a.log.Info().Str("addr", addr).Msg("listening")
					errc <- srv.ListenAndServe()
				}()

				select {
				case err := <-errc:
					return err
				case <-ctx.Done():
				}
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					return err
				}
				if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default api.addr)")
	return cmd
}
