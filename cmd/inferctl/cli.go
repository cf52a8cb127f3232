package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"inferd/internal/grpcapi"
	pb "inferd/pkg/inferencepb"
)

type clientOptions struct {
	addr    string
	timeout time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &clientOptions{addr: "localhost:50051", timeout: 60 * time.Second}
	if v := os.Getenv("INFERD_ADDR"); v != "" {
		opts.addr = v
	}
	root := &cobra.Command{
		Use:           "inferctl",
		Short:         "Talk to an inferd server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.addr, "addr", opts.addr, "Server address host:port (defaults INFERD_ADDR or localhost:50051)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", opts.timeout, "Per-call deadline")
	root.AddCommand(newGenerateCmd(opts), newHealthCmd(opts))
	return root
}

func newGenerateCmd(opts *clientOptions) *cobra.Command {
	var requestID string
	cmd := &cobra.Command{
		Use:     "generate [prompt...]",
		Short:   "Generate text for a prompt",
		Example: "  inferctl generate \"Write a haiku about the sea\"\n  echo hi | inferctl generate -",
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := strings.Join(args, " ")
			if prompt == "-" {
				b, err := readAll(cmd)
				if err != nil {
					return err
				}
				prompt = b
			}
			conn, err := dial(opts.addr)
			if err != nil {
				return err
			}
			defer conn.Close()

			if requestID == "" {
				requestID = uuid.NewString()
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()
			ctx = metadata.AppendToOutgoingContext(ctx, grpcapi.RequestIDHeader, requestID)

			resp, err := pb.NewInferencerClient(conn).GenerateText(ctx, &pb.GenerateRequest{Prompt: prompt})
			if err != nil {
				st := status.Convert(err)
				return fmt.Errorf("%s: %s", st.Code(), st.Message())
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), resp.GetGeneratedText())
			return err
		},
	}
	cmd.Flags().StringVar(&requestID, "request-id", "", "Request id sent as x-request-id (random when empty)")
	return cmd
}

func newHealthCmd(opts *clientOptions) *cobra.Command {
	var service string
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Query grpc.health.v1 for a service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conn, err := dial(opts.addr)
			if err != nil {
				return err
			}
			defer conn.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()
			resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: service})
			if err != nil {
				st := status.Convert(err)
				return fmt.Errorf("%s: %s", st.Code(), st.Message())
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.GetStatus().String())
			if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
				return fmt.Errorf("service %q is %s", service, resp.GetStatus())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&service, "service", pb.Inferencer_ServiceDesc.ServiceName, "Service name; empty checks the whole server")
	return cmd
}

func dial(addr string) (*grpc.ClientConn, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return conn, nil
}

func readAll(cmd *cobra.Command) (string, error) {
	b, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimRight(string(b), "\n"), nil
}
