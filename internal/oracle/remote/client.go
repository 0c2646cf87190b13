package remote

import (
	"context"
	"fmt"

	"github.com/GoSim-25-26J-441/capture-sizing/internal/oracle"
	"github.com/GoSim-25-26J-441/capture-sizing/pkg/models"
	"github.com/GoSim-25-26J-441/capture-sizing/pkg/utils"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client is an oracle.Oracle backed by a remote Server.
type Client struct {
	conn *grpc.ClientConn
}

var _ oracle.Oracle = (*Client)(nil)

// Dial creates a client for addr. Without options the connection is
// plaintext. No connection is made until the first call; see WaitReady.
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}

// Close shuts down the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Ping checks that the server answers.
func (c *Client) Ping(ctx context.Context) error {
	out := new(emptypb.Empty)
	return c.conn.Invoke(ctx, fullMethod(methodPing), &emptypb.Empty{}, out)
}

func (c *Client) Set(ctx context.Context, path string, value float64) error {
	req := &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldPath:  structpb.NewStringValue(path),
		fieldValue: structpb.NewNumberValue(value),
	}}
	err := c.conn.Invoke(ctx, fullMethod(methodSet), req, new(emptypb.Empty))
	return fromStatus(methodSet, path, err)
}

func (c *Client) Evaluate(ctx context.Context) (oracle.EvalResult, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, fullMethod(methodEvaluate), &emptypb.Empty{}, out); err != nil {
		return oracle.EvalResult{Status: models.EvalUnavailable}, fromStatus(methodEvaluate, "", err)
	}
	code := int(out.GetFields()[fieldCode].GetNumberValue())
	st := models.EvalStatus(out.GetFields()[fieldStatus].GetStringValue())
	if st == "" {
		st = oracle.StatusFromCode(code)
	}
	return oracle.EvalResult{Status: st, Code: code}, nil
}

func (c *Client) Get(ctx context.Context, path string) (float64, error) {
	out := new(wrapperspb.DoubleValue)
	if err := c.conn.Invoke(ctx, fullMethod(methodGet), wrapperspb.String(path), out); err != nil {
		return 0, fromStatus(methodGet, path, err)
	}
	return out.GetValue(), nil
}

// Pinger is anything WaitReady can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// WaitReady pings p until it answers, backing off between attempts. Only
// Unavailable is retried; any other failure is returned at once.
func WaitReady(ctx context.Context, p Pinger, strategy utils.BackoffStrategy, attempts int) error {
	err := utils.Retry(ctx, strategy, attempts, func(attempt int) (bool, error) {
		err := p.Ping(ctx)
		if err == nil {
			return false, nil
		}
		return status.Code(err) == codes.Unavailable, err
	})
	if err != nil {
		return fmt.Errorf("%w: %v", oracle.ErrOracleUnavailable, err)
	}
	return nil
}
