package server

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/alfredjeanlab/qna/internal/model"
	"github.com/alfredjeanlab/qna/internal/qnarpc"
)

// QnAServiceServer is the server API for the qna.v1.QnAService service.
type QnAServiceServer interface {
	Submit(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	SaveAnswer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Whoami(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Watch(*emptypb.Empty, grpc.ServerStream) error
}

var _ QnAServiceServer = (*QnAServer)(nil)

var qnaServiceDesc = grpc.ServiceDesc{
	ServiceName: qnarpc.ServiceName,
	HandlerType: (*QnAServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Submit",
			Handler: unaryHandler(qnarpc.MethodSubmit, func(s QnAServiceServer, ctx context.Context, in *wrapperspb.StringValue) (any, error) {
				return s.Submit(ctx, in)
			}),
		},
		{
			MethodName: "SaveAnswer",
			Handler: unaryHandler(qnarpc.MethodSaveAnswer, func(s QnAServiceServer, ctx context.Context, in *structpb.Struct) (any, error) {
				return s.SaveAnswer(ctx, in)
			}),
		},
		{
			MethodName: "Whoami",
			Handler: unaryHandler(qnarpc.MethodWhoami, func(s QnAServiceServer, ctx context.Context, in *emptypb.Empty) (any, error) {
				return s.Whoami(ctx, in)
			}),
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    qnarpc.WatchStreamDesc.StreamName,
			ServerStreams: true,
			Handler: func(srv any, stream grpc.ServerStream) error {
				in := new(emptypb.Empty)
				if err := stream.RecvMsg(in); err != nil {
					return err
				}
				return srv.(QnAServiceServer).Watch(in, stream)
			},
		},
	},
	Metadata: "qna/v1/qna.proto",
}

// unaryHandler adapts a typed service call to grpc.MethodHandler, running
// it through the server's interceptor chain.
func unaryHandler[Req any](method string, call func(QnAServiceServer, context.Context, *Req) (any, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(QnAServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(QnAServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// NewGRPCServer creates a gRPC server with standard interceptors,
// registers the QnAService, health and reflection, and returns the server
// ready to serve.
func NewGRPCServer(qs *QnAServer, opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{
		grpc.UnaryInterceptor(qs.unaryInterceptor),
		grpc.StreamInterceptor(qs.streamInterceptor),
	}, opts...)
	srv := grpc.NewServer(opts...)

	srv.RegisterService(&qnaServiceDesc, qs)

	hs := health.NewServer()
	hs.SetServingStatus(qnarpc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	reflection.Register(srv)
	return srv
}

// Submit appends a question.
func (s *QnAServer) Submit(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	q, err := s.submit(ctx, identityFrom(ctx), req.GetValue())
	if err != nil {
		return nil, grpcError(err)
	}
	return qnarpc.QuestionToStruct(q)
}

// SaveAnswer sets or retracts an answer (admin only).
func (s *QnAServer) SaveAnswer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, raw := qnarpc.ParseSaveAnswerRequest(req)
	q, err := s.saveAnswer(ctx, identityFrom(ctx), id, raw)
	if err != nil {
		return nil, grpcError(err)
	}
	return qnarpc.QuestionToStruct(q)
}

// Whoami reports the caller's identity and admin flag.
func (s *QnAServer) Whoami(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	id := identityFrom(ctx)
	if id == nil {
		return nil, grpcError(model.ErrNoIdentity)
	}
	return qnarpc.WhoamiToStruct(qnarpc.Whoami{UID: id.UID, Anonymous: id.Anonymous, IsAdmin: s.session(id).IsAdmin})
}

// Watch streams complete snapshots until the client goes away. The first
// message is the current snapshot, if one has been loaded.
func (s *QnAServer) Watch(_ *emptypb.Empty, stream grpc.ServerStream) error {
	ctx := stream.Context()
	sub := s.hub.Subscribe()
	defer sub.Cancel()
	release := s.Presence.Connect(s.session(identityFrom(ctx)).UID(), "grpc")
	defer release()

	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-sub.C():
			if !ok {
				return nil
			}
			msg, err := qnarpc.SnapshotToStruct(snap)
			if err != nil {
				return status.Errorf(codes.Internal, "encode snapshot: %v", err)
			}
			if err := stream.SendMsg(msg); err != nil {
				return err
			}
		}
	}
}

// grpcError maps domain errors to gRPC status codes.
func grpcError(err error) error {
	var ie inputError
	switch {
	case errors.As(err, &ie):
		return status.Error(codes.InvalidArgument, ie.Error())
	case errors.Is(err, model.ErrNoIdentity):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, model.ErrForbidden):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, model.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	default:
		return status.Errorf(codes.Internal, "%v", err)
	}
}
