package rpc

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"strategylab/internal/domain"
	"strategylab/internal/strategy"
)

// Backtester is the subset of *backtest.Service served over gRPC.
type Backtester interface {
	Run(ctx context.Context, userID string, cfg domain.StrategyConfig) (*domain.BacktestResult, error)
	Get(ctx context.Context, id string) (*domain.BacktestResult, error)
}

// RunRequest is the RunBacktest request shape.
type RunRequest struct {
	UserID string `json:"userId"`
	domain.StrategyConfig
}

// GetRequest is the GetBacktest request shape.
type GetRequest struct {
	ID string `json:"id"`
}

// StrategiesReply is the ListStrategies response shape.
type StrategiesReply struct {
	Strategies []strategy.Info       `json:"strategies"`
	Defaults   domain.StrategyParams `json:"defaults"`
}

var _ BacktestsServer = (*Server)(nil)

// Server implements the Backtests gRPC service.
type Server struct {
	svc      Backtester
	registry *strategy.Registry
	log      *slog.Logger
}

// NewServer creates a gRPC server backed by svc.
func NewServer(svc Backtester, registry *strategy.Registry, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{svc: svc, registry: registry, log: log.With("component", "rpc")}
}

// RegisterGRPC registers the server on the given gRPC server instance.
func (s *Server) RegisterGRPC(gs *grpc.Server) {
	gs.RegisterService(&ServiceDesc, s)
}

// RunBacktest runs and persists a backtest.
func (s *Server) RunBacktest(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req RunRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "decoding request: %v", err)
	}
	if req.Symbol == "" {
		return nil, status.Error(codes.InvalidArgument, "symbol required")
	}
	res, err := s.svc.Run(ctx, req.UserID, req.StrategyConfig)
	if err != nil {
		return nil, s.statusFor(err)
	}
	return toStruct(res)
}

// GetBacktest returns a stored result.
func (s *Server) GetBacktest(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req GetRequest
	if err := fromStruct(in, &req); err != nil || req.ID == "" {
		return nil, status.Error(codes.InvalidArgument, "id required")
	}
	res, err := s.svc.Get(ctx, req.ID)
	if err != nil {
		return nil, s.statusFor(err)
	}
	return toStruct(res)
}

// ListStrategies describes the registered strategies and default parameters.
func (s *Server) ListStrategies(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return toStruct(StrategiesReply{
		Strategies: s.registry.Describe(),
		Defaults:   domain.DefaultStrategyParams(),
	})
}

func (s *Server) statusFor(err error) error {
	var perr *domain.PersistenceError
	switch {
	case errors.As(err, &perr):
		return status.Error(codes.Internal, err.Error())
	case errors.Is(err, domain.ErrInvalidConfig):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrInsufficientData):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	s.log.Warn("rpc failed", "error", err)
	return status.Error(codes.Unavailable, err.Error())
}
