package remote

import (
	"context"
	"sync"

	"github.com/GoSim-25-26J-441/capture-sizing/internal/oracle"
	"github.com/GoSim-25-26J-441/capture-sizing/pkg/logger"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Server exposes one oracle session over gRPC. Calls are serialised: the
// simulator runs a single evaluation at a time.
type Server struct {
	mu     sync.Mutex
	oracle oracle.Oracle
}

// NewServer creates a Server backed by o.
func NewServer(o oracle.Oracle) *Server {
	return &Server{oracle: o}
}

func (s *Server) Ping(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	return &emptypb.Empty{}, nil
}

func (s *Server) Set(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "path and value are required")
	}
	path, ok := req.GetFields()[fieldPath]
	if !ok || path.GetStringValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "path is required")
	}
	value, ok := req.GetFields()[fieldValue]
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "value is required")
	}
	if _, isNum := value.GetKind().(*structpb.Value_NumberValue); !isNum {
		return nil, status.Error(codes.InvalidArgument, "value must be a number")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.oracle.Set(ctx, path.GetStringValue(), value.GetNumberValue()); err != nil {
		logger.Debug("set rejected", "path", path.GetStringValue(), "error", err)
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *Server) Evaluate(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.oracle.Evaluate(ctx)
	if err != nil {
		logger.Warn("evaluation failed", "error", err)
		return nil, toStatus(err)
	}
	out, err := structpb.NewStruct(map[string]any{
		fieldStatus: string(res.Status),
		fieldCode:   float64(res.Code),
	})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	logger.Debug("evaluation finished", "status", res.Status, "code", res.Code)
	return out, nil
}

func (s *Server) Get(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.DoubleValue, error) {
	if req.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "path is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.oracle.Get(ctx, req.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.Double(v), nil
}
