// Package grpcserver exposes the drinkless Profiles gRPC API handlers.
package grpcserver

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/and161185/drinkless/internal/api"
	"github.com/and161185/drinkless/internal/convert"
	"github.com/and161185/drinkless/internal/errs"
	"github.com/and161185/drinkless/internal/limiter"
	"github.com/and161185/drinkless/internal/service"
	"github.com/gofrs/uuid/v5"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

var _ api.ProfilesServer = (*Server)(nil)

// Server wires services into gRPC handlers.
type Server struct {
	auth     service.AuthService
	profiles service.ProfileService
	limit    limiter.Limiter
}

// New constructs a gRPC server with injected services.
func New(auth service.AuthService, profiles service.ProfileService) *Server {
	return &Server{auth: auth, profiles: profiles}
}

// WithLimiter enables login lockout after repeated bad passwords.
func (s *Server) WithLimiter(l limiter.Limiter) *Server {
	s.limit = l
	return s
}

// --- Auth ---

// Register creates a new user account.
func (s *Server) Register(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	username, password, err := convert.FromStructCredentials(req)
	if err != nil || username == "" || password == "" {
		return nil, status.Error(codes.InvalidArgument, "empty username/password")
	}
	userID, err := s.auth.Register(ctx, username, password)
	if err != nil {
		return nil, toStatus("register", err)
	}
	return convert.ToStructUserID(userID), nil
}

// Login authenticates a user and returns an access token.
func (s *Server) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	username, password, err := convert.FromStructCredentials(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "bad credentials payload")
	}
	client := clientKey(ctx)
	if s.limit != nil {
		wait, err := s.limit.Allow(ctx, username, client)
		if err != nil {
			return nil, toStatus("login limiter", err)
		}
		if wait > 0 {
			return nil, status.Errorf(codes.ResourceExhausted, "too many attempts, retry in %s", wait.Round(time.Second))
		}
	}
	tok, u, err := s.auth.Login(ctx, username, password)
	if err != nil {
		if errors.Is(err, errs.ErrUnauthorized) {
			if s.limit != nil {
				// the reply stays Unauthenticated; Allow reports the lockout next time
				_, _ = s.limit.Failure(ctx, username, client)
			}
			return nil, status.Error(codes.Unauthenticated, "bad credentials")
		}
		return nil, toStatus("login", err)
	}
	if s.limit != nil {
		_ = s.limit.Success(ctx, username, client)
	}
	return convert.ToStructLogin(tok, u.ID), nil
}

// DeleteAccount removes the caller's account and profile.
func (s *Server) DeleteAccount(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	userID, err := s.accountFor(ctx)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, "no auth")
	}
	if err := s.auth.DeleteAccount(ctx, userID); err != nil {
		return nil, toStatus("delete account", err)
	}
	return &emptypb.Empty{}, nil
}

// --- Profiles ---

// GetProfile returns the caller's profile.
func (s *Server) GetProfile(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	userID, err := s.accountFor(ctx)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, "no auth")
	}
	p, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, toStatus("get profile", err)
	}
	return convert.ToStructProfile(*p), nil
}

// UpsertProfile merges a partial update with optional optimistic concurrency.
func (s *Server) UpsertProfile(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := s.accountFor(ctx)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, "no auth")
	}
	patch, err := convert.FromStructPatch(req)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "bad patch: %v", err)
	}
	p, err := s.profiles.Upsert(ctx, userID, patch)
	if err != nil {
		return nil, toStatus("upsert profile", err)
	}
	return convert.ToStructProfile(*p), nil
}

// toStatus maps domain sentinels to gRPC codes.
func clientKey(ctx context.Context) []byte {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return limiter.ClientKey(p.Addr.String())
	}
	return limiter.ClientKey("unknown")
}

func toStatus(op string, err error) error {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, errs.ErrVersionConflict):
		return status.Error(codes.FailedPrecondition, "version conflict")
	case errors.Is(err, errs.ErrAlreadyExists):
		return status.Error(codes.AlreadyExists, "already exists")
	case errors.Is(err, errs.ErrValidation), errors.Is(err, errs.ErrInvalidAmount):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, errs.ErrUnauthorized):
		return status.Error(codes.Unauthenticated, "unauthorized")
	default:
		return status.Errorf(codes.Internal, "%s: %v", op, err)
	}
}

// accountFor prefers the account stored by AuthUnary and falls back to
// verifying "authorization: Bearer <JWT>" itself.
func (s *Server) accountFor(ctx context.Context) (uuid.UUID, error) {
	if id, ok := AccountFromCtx(ctx); ok {
		return id, nil
	}
	tok, err := bearerTokenFromMD(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	return s.auth.VerifyToken(tok)
}

func bearerTokenFromMD(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", errors.New("no metadata")
	}
	for _, v := range md.Get("authorization") {
		v = strings.TrimSpace(v)
		if len(v) >= 7 && strings.EqualFold(v[:7], "bearer ") {
			t := strings.TrimSpace(v[7:])
			if t != "" {
				return t, nil
			}
		}
	}
	return "", errors.New("no bearer token")
}
