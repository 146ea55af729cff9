package server

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/alfredjeanlab/qna/internal/identity"
)

// unaryInterceptor and streamInterceptor wrap every RPC in rpcCall.
func (s *QnAServer) unaryInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
	err = s.rpcCall(ctx, info.FullMethod, func(ctx context.Context) error {
		var herr error
		resp, herr = handler(ctx, req)
		return herr
	})
	return resp, err
}

func (s *QnAServer) streamInterceptor(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	return s.rpcCall(ss.Context(), info.FullMethod, func(ctx context.Context) error {
		return handler(srv, &identityStream{ServerStream: ss, ctx: ctx})
	})
}

// rpcCall authenticates the caller, runs call with panic recovery and logs
// the outcome. For streams the duration covers the whole stream.
func (s *QnAServer) rpcCall(ctx context.Context, method string, call func(context.Context) error) error {
	start := time.Now()
	ctx, err := callerIdentity(ctx, s.issuer, method)
	if err == nil {
		err = s.recoverRPC(method, func() error { return call(ctx) })
	}
	s.logRPC(ctx, method, time.Since(start), err)
	return err
}

func (s *QnAServer) recoverRPC(method string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic recovered in gRPC handler",
				"method", method,
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
			err = status.Error(codes.Internal, "internal server error")
		}
	}()
	return fn()
}

func (s *QnAServer) logRPC(ctx context.Context, method string, d time.Duration, err error) {
	code := status.Code(err)
	attrs := []any{"method", method, "code", code.String(), "duration", d}
	if id := identityFrom(ctx); id != nil {
		attrs = append(attrs, "uid", id.UID)
	}
	level := slog.LevelInfo
	switch code {
	case codes.OK, codes.Canceled:
	case codes.InvalidArgument, codes.NotFound, codes.PermissionDenied, codes.Unauthenticated:
		level = slog.LevelWarn
		attrs = append(attrs, "error", err)
	default:
		level = slog.LevelError
		attrs = append(attrs, "error", err)
	}
	s.logger.Log(ctx, level, "rpc completed", attrs...)
}

// callerIdentity verifies the "authorization" metadata, if any, and returns
// ctx carrying the identity. No token means an anonymous call; a bad token
// is Unauthenticated. Health checks are always exempt.
func callerIdentity(ctx context.Context, issuer *identity.Issuer, method string) (context.Context, error) {
	if strings.HasPrefix(method, "/grpc.health.v1.Health/") {
		return ctx, nil
	}
	md, _ := metadata.FromIncomingContext(ctx)
	vals := md.Get("authorization")
	if len(vals) == 0 {
		return ctx, nil
	}
	tok, ok := bearerToken(vals[0])
	if !ok {
		return ctx, status.Error(codes.Unauthenticated, "invalid authorization scheme")
	}
	id, err := issuer.Verify(ctx, tok)
	if err != nil {
		return ctx, status.Error(codes.Unauthenticated, "invalid token")
	}
	return withIdentity(ctx, id), nil
}

// identityStream overrides the stream context with one carrying the
// verified identity.
type identityStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *identityStream) Context() context.Context { return s.ctx }
