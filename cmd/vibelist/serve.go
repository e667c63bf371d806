package main

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/heavenlydemon269/vibelist/internal/server"
	"github.com/heavenlydemon269/vibelist/playlist"
	"github.com/heavenlydemon269/vibelist/resource"
)

func newServeCommand(flags *rootFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve recommendations and playlist sessions over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := newApp(flags)
			if err != nil {
				return err
			}
			defer a.Close()
			if addr != "" {
				a.cfg.Server.Addr = addr
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			enc, err := a.newEncoder()
			if err != nil {
				return err
			}
			vl, err := a.openVibelist(ctx, enc, reg)
			if err != nil {
				return err
			}
			sessions, err := a.newSessions(ctx)
			if err != nil {
				return err
			}
			client, err := a.newMusicService(ctx)
			if err != nil {
				return err
			}

			curOpts := playlist.DefaultOptions()
			curOpts.Logger = a.logger
			curator := playlist.NewCurator(vl, client, curOpts)

			sc := a.cfg.Server
			srv := server.New(vl, curator, sessions, server.Config{
				RateLimit: sc.RateLimit,
				MaxCount:  sc.MaxCount,
				Controller: resource.NewController(resource.Config{
					MaxConcurrent: sc.MaxConcurrent,
				}),
				QueueTimeout: sc.QueueTimeout,
				Gatherer:     reg,
				Logger:       a.logger,
			})

			a.logger.InfoContext(ctx, "listening",
				slog.String("addr", sc.Addr),
				slog.Int("tracks", vl.Catalog().Len()),
				slog.String("policy", vl.Policy().String()),
			)
			return server.Run(ctx, sc.Addr, srv.Handler(), sc.ReadTimeout, sc.WriteTimeout, sc.ShutdownTimeout)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: server.addr)")
	return cmd
}
