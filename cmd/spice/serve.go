package main

import (
	"fmt"
	"log/slog"
	"net"

	"github.com/Veraticus/spice-ledger/internal/api"
	"github.com/Veraticus/spice-ledger/internal/certs"
	"github.com/Veraticus/spice-ledger/internal/cli"
	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var (
		addr   string
		useTLS bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the ledger over HTTP",
		Long: `Run the JSON API used by the web and mobile surfaces.

Requests pick their profile with the X-User-ID header and act as the guest
without it. The server stops on Ctrl+C.

Phones need HTTPS to use the camera from a browser. With --tls a self-signed
certificate covering this machine's addresses is created and reused.

Examples:
  spice serve
  spice serve --addr 0.0.0.0:8443 --tls`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if addr == "" {
				addr = appConfig.Server.Addr
			}
			if !cmd.Flags().Changed("tls") {
				useTLS = appConfig.Server.TLS
			}

			a, err := openApp(ctx, false)
			if err != nil {
				return err
			}
			defer a.Close()

			srv := api.NewServer(addr, a.engine, slog.Default())
			if useTLS {
				host, _, err := net.SplitHostPort(addr)
				if err != nil {
					return common.NewUserError(fmt.Sprintf("invalid listen address %q", addr), err)
				}
				cert, err := certs.NewManager(appConfig.Server.CertDir, slog.Default(), certHosts(host)...).Certificate()
				if err != nil {
					return fmt.Errorf("failed to prepare TLS certificate: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("Certificate fingerprint (SHA-256): "+certs.Fingerprint(cert)))
				srv = srv.WithTLS(cert)
			}

			slog.Debug("Model gateway for API", "model", a.gateway.Model())
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from server.addr)")
	cmd.Flags().BoolVar(&useTLS, "tls", false, "serve HTTPS with a self-signed certificate (default from server.tls)")

	return cmd
}

// certHosts lists the names the certificate must cover for a listen host.
// Binding every interface covers every LAN address.
func certHosts(host string) []string {
	switch host {
	case "", "0.0.0.0", "::":
		return certs.LocalHosts()
	case "localhost", "127.0.0.1", "::1":
		return nil
	}
	return []string{host}
}
