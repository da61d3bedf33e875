package grpcserver

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/and161185/drinkless/internal/api"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// LoggingUnary returns a unary server interceptor for structured logging.
// Only metadata is logged, never payloads.
func LoggingUnary(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := next(ctx, req)
		code := status.Code(err)

		var remote string
		if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
			remote = p.Addr.String()
		}
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", code.String()),
			zap.Duration("dur", time.Since(start)),
			zap.String("peer", remote),
		}
		if id, ok := AccountFromCtx(ctx); ok {
			fields = append(fields, zap.String("user", id.String()))
		}
		if code == codes.Internal || code == codes.Unknown {
			log.Warn("grpc", fields...)
		} else {
			log.Info("grpc", fields...)
		}
		return resp, err
	}
}

// RecoverUnary returns a unary server interceptor that recovers from panics.
func RecoverUnary(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic",
					zap.Any("reason", r),
					zap.ByteString("stack", debug.Stack()),
					zap.String("method", info.FullMethod),
				)
				err = status.Error(codes.Internal, "internal")
			}
		}()
		return next(ctx, req)
	}
}

// publicMethods do not require a bearer token.
var publicMethods = map[string]bool{
	api.MethodRegister: true,
	api.MethodLogin:    true,
}

// AuthUnary verifies the bearer token of non-public methods and stores
// the subject in the context for handlers and the logging interceptor.
func AuthUnary(verify func(token string) (uuid.UUID, error)) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		if publicMethods[info.FullMethod] {
			return next(ctx, req)
		}
		tok, err := bearerTokenFromMD(ctx)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "no auth")
		}
		id, err := verify(tok)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}
		return next(WithAccount(ctx, id), req)
	}
}
