package main

import (
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/thywilljoshua/pdf-to-pptx/internal/web"
)

func serveCmd() *cobra.Command {
	var addr string
	var port string
	var maxUploadMB int64
	var flags pipelineFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the upload form on all interfaces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			conf, err := flags.config(ctx)
			if err != nil {
				return err
			}
			srv, err := web.New(web.Config{
				MaxUploadBytes: maxUploadMB << 20,
				Convert:        conf,
			})
			if err != nil {
				return err
			}
			return srv.ListenAndServe(ctx, net.JoinHostPort(addr, port))
		},
	}
	defaultPort := os.Getenv("PORT")
	if defaultPort == "" {
		defaultPort = "8080"
	}
	cmd.Flags().StringVar(&addr, "addr", "0.0.0.0", "interface to bind")
	cmd.Flags().StringVar(&port, "port", defaultPort, "port to listen on (default from $PORT)")
	cmd.Flags().Int64Var(&maxUploadMB, "max-upload-mb", web.DefaultMaxUploadBytes>>20, "largest accepted upload in MB")
	flags.register(cmd)
	return cmd
}
