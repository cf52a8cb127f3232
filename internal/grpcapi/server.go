package grpcapi

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"

	"inferd/internal/backend"
	pb "inferd/pkg/inferencepb"
)

// Server implements inference.Inferencer on top of a backend.Backend.
type Server struct {
	pb.UnimplementedInferencerServer

	backend        backend.Backend
	log            zerolog.Logger
	requestTimeout time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for backend failures.
func WithLogger(l zerolog.Logger) Option { return func(s *Server) { s.log = l } }

// WithRequestTimeout bounds each backend call. Zero leaves only the caller's
// deadline in effect.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.requestTimeout = d
		}
	}
}

// NewServer returns a handler that forwards prompts to b.
func NewServer(b backend.Backend, opts ...Option) *Server {
	s := &Server{backend: b, log: zerolog.Nop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Register attaches the Inferencer service to r.
func (s *Server) Register(r grpc.ServiceRegistrar) {
	pb.RegisterInferencerServer(r, s)
}

// ServiceName is the fully-qualified service name used for health reporting.
func (s *Server) ServiceName() string {
	return pb.Inferencer_ServiceDesc.ServiceName
}

// GenerateText forwards the prompt, unmodified, to the backend and returns
// its text verbatim. Any backend failure becomes a gRPC status error and no
// response message.
func (s *Server) GenerateText(ctx context.Context, req *pb.GenerateRequest) (*pb.GenerateResponse, error) {
	if s.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.requestTimeout)
		defer cancel()
	}
	text, err := s.backend.Generate(ctx, req.GetPrompt())
	if err != nil {
		st := statusFromError(ctx, err)
		s.log.Error().
			Err(err).
			Str("backend", s.backend.Name()).
			Str("kind", backend.KindOf(err).String()).
			Str("code", st.Code().String()).
			Msg("generation failed")
		return nil, st.Err()
	}
	return &pb.GenerateResponse{GeneratedText: text}, nil
}
