package rpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"strategylab/internal/domain"
)

// Client calls the Backtests service.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an existing connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Dial connects to addr without transport security. The caller closes the
// returned connection.
func Dial(addr string) (*Client, *grpc.ClientConn, error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to %s: %w", addr, err)
	}
	return NewClient(conn), conn, nil
}

func (c *Client) invoke(ctx context.Context, method string, req, reply any) error {
	in, err := toStruct(req)
	if err != nil {
		return err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out); err != nil {
		return err
	}
	return fromStruct(out, reply)
}

// RunBacktest runs cfg on the server for userID.
func (c *Client) RunBacktest(ctx context.Context, userID string, cfg domain.StrategyConfig) (*domain.BacktestResult, error) {
	var res domain.BacktestResult
	if err := c.invoke(ctx, RunBacktestMethod, RunRequest{UserID: userID, StrategyConfig: cfg}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// GetBacktest fetches a stored result.
func (c *Client) GetBacktest(ctx context.Context, id string) (*domain.BacktestResult, error) {
	var res domain.BacktestResult
	if err := c.invoke(ctx, GetBacktestMethod, GetRequest{ID: id}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ListStrategies lists the server's strategies.
func (c *Client) ListStrategies(ctx context.Context) (*StrategiesReply, error) {
	var out StrategiesReply
	if err := c.invoke(ctx, ListStrategiesMethod, struct{}{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
