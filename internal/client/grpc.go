package client

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/alfredjeanlab/qna/internal/model"
	"github.com/alfredjeanlab/qna/internal/qnarpc"
)

// GRPCClient implements Client using the gRPC transport.
type GRPCClient struct {
	conn *grpc.ClientConn
	opts options

	mu    sync.RWMutex
	token string
}

var _ Client = (*GRPCClient)(nil)

// NewGRPCClient connects to the given gRPC address and returns a client.
// Extra dial options are appended after the defaults.
func NewGRPCClient(addr, token string, opts []Option, dialOpts ...grpc.DialOption) (*GRPCClient, error) {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	c := &GRPCClient{token: token, opts: o}

	all := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithChainUnaryInterceptor(c.unaryAuth),
		grpc.WithChainStreamInterceptor(c.streamAuth),
	}, dialOpts...)
	conn, err := grpc.NewClient(addr, all...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial: %w", err)
	}
	c.conn = conn
	return c, nil
}

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

// SetToken replaces the bearer token used for later calls.
func (c *GRPCClient) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *GRPCClient) withToken(ctx context.Context) context.Context {
	c.mu.RLock()
	tok := c.token
	c.mu.RUnlock()
	if tok == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+tok)
}

func (c *GRPCClient) unaryAuth(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
	return invoker(c.withToken(ctx), method, req, reply, cc, opts...)
}

func (c *GRPCClient) streamAuth(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, streamer grpc.Streamer, opts ...grpc.CallOption) (grpc.ClientStream, error) {
	return streamer(c.withToken(ctx), desc, cc, method, opts...)
}

// --- Questions ---

func (c *GRPCClient) AddQuestion(ctx context.Context, text string) error {
	_, err := c.CreateQuestion(ctx, text)
	return err
}

func (c *GRPCClient) SaveAnswer(ctx context.Context, id string, answer *string) error {
	_, err := c.SetAnswer(ctx, id, answer)
	return err
}

func (c *GRPCClient) CreateQuestion(ctx context.Context, text string) (*model.Question, error) {
	resp := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, qnarpc.MethodSubmit, wrapperspb.String(text), resp); err != nil {
		return nil, err
	}
	return qnarpc.QuestionFromStruct(resp)
}

func (c *GRPCClient) SetAnswer(ctx context.Context, id string, answer *string) (*model.Question, error) {
	req, err := qnarpc.SaveAnswerRequest(id, answer)
	if err != nil {
		return nil, err
	}
	resp := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, qnarpc.MethodSaveAnswer, req, resp); err != nil {
		return nil, err
	}
	return qnarpc.QuestionFromStruct(resp)
}

// ListQuestions returns the first snapshot of a Watch call.
func (c *GRPCClient) ListQuestions(ctx context.Context) (model.Snapshot, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	recv, err := c.openWatch(ctx)
	if err != nil {
		return model.Snapshot{}, err
	}
	return recv()
}

// --- Identity ---

func (c *GRPCClient) Whoami(ctx context.Context) (*Whoami, error) {
	resp := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, qnarpc.MethodWhoami, &emptypb.Empty{}, resp); err != nil {
		return nil, err
	}
	w := qnarpc.WhoamiFromStruct(resp)
	return &Whoami{UID: w.UID, Anonymous: w.Anonymous, IsAdmin: w.IsAdmin}, nil
}

// --- Health ---

func (c *GRPCClient) Health(ctx context.Context) (string, error) {
	resp, err := healthpb.NewHealthClient(c.conn).Check(ctx, &healthpb.HealthCheckRequest{Service: qnarpc.ServiceName})
	if err != nil {
		return "", err
	}
	if resp.GetStatus() == healthpb.HealthCheckResponse_SERVING {
		return "ok", nil
	}
	return resp.GetStatus().String(), nil
}

// --- Live feed ---

func (c *GRPCClient) Stream(ctx context.Context, onState func(bool)) <-chan model.Snapshot {
	return follow(ctx, c.opts, c.openWatch, onState)
}

func (c *GRPCClient) openWatch(ctx context.Context) (recvFunc, error) {
	stream, err := c.conn.NewStream(ctx, &qnarpc.WatchStreamDesc, qnarpc.MethodWatch)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(&emptypb.Empty{}); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return func() (model.Snapshot, error) {
		msg := new(structpb.Struct)
		if err := stream.RecvMsg(msg); err != nil {
			return model.Snapshot{}, err
		}
		return qnarpc.SnapshotFromStruct(msg)
	}, nil
}

// IsUnauthenticated reports whether err is a gRPC Unauthenticated status.
func IsUnauthenticated(err error) bool {
	return status.Code(err) == codes.Unauthenticated
}
