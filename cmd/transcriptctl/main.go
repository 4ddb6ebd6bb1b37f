// Command transcriptctl controls a running live transcript service.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"

	grpcapi "live-transcript-service/internal/api/grpc"
	"live-transcript-service/internal/ingest"
)

type options struct {
	server  string
	grpc    string
	timeout time.Duration
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "transcriptctl",
		Short:        "Control a live transcript service",
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&opts.server, "server", envOr("TRANSCRIPT_SERVER", "http://localhost:8080"), "service HTTP address")
	root.PersistentFlags().StringVar(&opts.grpc, "grpc", envOr("TRANSCRIPT_GRPC", "localhost:50051"), "service gRPC address")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "request timeout")

	root.AddCommand(
		controlCmd(opts, "connect", "Open the transcript stream", http.MethodPost, "/v1/session/connect"),
		controlCmd(opts, "disconnect", "Close the transcript stream and drop partial utterances", http.MethodPost, "/v1/session/disconnect"),
		controlCmd(opts, "clear", "Reset the session", http.MethodPost, "/v1/session/clear"),
		controlCmd(opts, "status", "Show the connection status", http.MethodGet, "/v1/session/status"),
		exportCmd(opts),
		watchCmd(opts),
		healthCmd(opts),
	)
	return root
}

func controlCmd(opts *options, use, short, method, path string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := newClient(opts.server, opts.timeout)
			st, err := c.status(cmd.Context(), method, path)
			if err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), st)
			return nil
		},
	}
}

func printStatus(w io.Writer, st ingest.Status) {
	fmt.Fprintf(w, "state:    %s\n", st.State)
	fmt.Fprintf(w, "session:  %s\n", st.SessionID)
	fmt.Fprintf(w, "source:   %s\n", st.Source)
	if st.StartedAt != nil {
		fmt.Fprintf(w, "started:  %s\n", st.StartedAt.Local().Format(time.RFC3339))
	}
	if st.Error != "" {
		fmt.Fprintf(w, "error:    %s\n", st.Error)
	}
}

func exportCmd(opts *options) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download the finalized transcript as text",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := newClient(opts.server, opts.timeout)
			if output == "-" {
				_, err := c.export(cmd.Context(), cmd.OutOrStdout())
				return err
			}

			dir := "."
			if output != "" {
				dir = filepath.Dir(output)
			}
			tmp, err := os.CreateTemp(dir, ".transcript-*")
			if err != nil {
				return fmt.Errorf("create temp file: %w", err)
			}
			defer os.Remove(tmp.Name())

			name, err := c.export(cmd.Context(), tmp)
			if cerr := tmp.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}
			if output == "" {
				output = name
			}
			if output == "" {
				output = "transcript.txt"
			}
			if err := os.Rename(tmp.Name(), output); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, '-' for stdout (default: server-suggested name)")
	return cmd
}

func watchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow the live transcript",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			p := &printer{w: cmd.OutOrStdout()}
			return newClient(opts.server, opts.timeout).watch(ctx, p.print)
		},
	}
}

func healthCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Query the gRPC health of the process and the ingest stream",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conn, err := grpc.NewClient(opts.grpc, grpc.WithTransportCredentials(insecure.NewCredentials()))
			if err != nil {
				return fmt.Errorf("dial %s: %w", opts.grpc, err)
			}
			defer conn.Close()

			client := grpc_health_v1.NewHealthClient(conn)
			for _, svc := range []string{"", grpcapi.IngestService} {
				ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
				resp, err := client.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: svc})
				cancel()
				if err != nil {
					return fmt.Errorf("health check %q: %w", svc, err)
				}
				name := svc
				if name == "" {
					name = "process"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-24s %s\n", name, resp.GetStatus())
			}
			return nil
		},
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
