package client

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/and161185/drinkless/internal/api"
	"github.com/and161185/drinkless/internal/errs"
	"github.com/and161185/drinkless/internal/identity"
	"github.com/and161185/drinkless/internal/kv"
	"github.com/and161185/drinkless/internal/model"
	"github.com/and161185/drinkless/internal/profile"
	"github.com/and161185/drinkless/internal/repository/memory"
	grpcserver "github.com/and161185/drinkless/internal/server/grpc"
	"github.com/and161185/drinkless/internal/service"
)

func startServer(t *testing.T) *grpc.ClientConn {
	t.Helper()
	profiles := memory.NewProfiles()
	auth := service.NewAuthService(memory.NewUsers(), profiles, []byte("test-secret"), time.Minute)
	log := zaptest.NewLogger(t)

	lis := bufconn.Listen(1 << 20)
	gs := grpc.NewServer(grpc.ChainUnaryInterceptor(
		grpcserver.RecoverUnary(log),
		grpcserver.AuthUnary(auth.VerifyToken),
		grpcserver.LoggingUnary(log),
	))
	api.RegisterProfilesServer(gs, grpcserver.New(auth, service.NewProfileService(profiles)))
	go func() { _ = gs.Serve(lis) }()

	cc, err := Dial("passthrough:///bufnet", TLS{Plaintext: true},
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) { return lis.Dial() }))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = cc.Close(); gs.Stop(); _ = lis.Close() })
	return cc
}

func TestClient_RegisterLoginProfile(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cc := startServer(t)

	var token string
	c := New(cc, func() string { return token })

	id, err := c.Register(ctx, "alice", "pw")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := c.Register(ctx, "alice", "pw"); !errors.Is(err, errs.ErrAlreadyExists) {
		t.Fatalf("duplicate register: want ErrAlreadyExists, got %v", err)
	}
	if _, _, err := c.Login(ctx, "alice", "wrong"); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("bad login: want ErrUnauthorized, got %v", err)
	}
	if _, err := c.Get(ctx, id); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("get without token: want ErrUnauthorized, got %v", err)
	}

	tok, gotID, err := c.Login(ctx, "alice", "pw")
	if err != nil || gotID != id {
		t.Fatalf("login: id=%s err=%v", gotID, err)
	}
	token = tok.AccessToken

	if _, err := c.Get(ctx, id); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("fresh account: want ErrNotFound, got %v", err)
	}
	p, err := c.Upsert(ctx, id, model.ProfilePatch{Coins: model.Int(25)})
	if err != nil || p.Coins != 25 || p.Ver != 1 {
		t.Fatalf("upsert: %+v %v", p, err)
	}
	stale := int64(0)
	if _, err := c.Upsert(ctx, id, model.ProfilePatch{Coins: model.Int(1), BaseVer: &stale}); !errors.Is(err, errs.ErrVersionConflict) {
		t.Fatalf("stale base: want ErrVersionConflict, got %v", err)
	}
	// the original status survives the mapping
	_, err = c.Upsert(ctx, id, model.ProfilePatch{Coins: model.Int(-1)})
	if !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("negative coins: want ErrValidation, got %v", err)
	}
	if st, ok := status.FromError(err); !ok || st.Code() != codes.InvalidArgument {
		t.Fatalf("negative coins: want InvalidArgument status, got %v", err)
	}

	other := uuid.Must(uuid.NewV4())
	if _, err := c.Get(ctx, other); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("foreign id: want ErrUnauthorized, got %v", err)
	}

	if err := c.Delete(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, _, err := c.Login(ctx, "alice", "pw"); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("login after delete: want ErrUnauthorized, got %v", err)
	}
}

func TestClient_DrivesProfileState(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cc := startServer(t)

	var token string
	c := New(cc, func() string { return token })
	id, err := c.Register(ctx, "bob", "pw")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	tok, _, err := c.Login(ctx, "bob", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	token = tok.AccessToken

	cache := kv.NewMemory()
	st := profile.New(cache, c, identity.Fixed(id), profile.Options{Log: zaptest.NewLogger(t)})
	p, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if p.UserID != id || p.Ver != 1 {
		t.Fatalf("remote profile not created: %+v", p)
	}
	p, err = st.Update(ctx, func(cur model.Profile) (model.ProfilePatch, error) {
		return model.ProfilePatch{Coins: model.Int(cur.Coins + 50), CurrentStreak: model.Int(1)}, nil
	})
	if err != nil || p.Coins != 50 || p.LongestStreak != 1 {
		t.Fatalf("update: %+v %v", p, err)
	}

	remote, err := c.Get(ctx, id)
	if err != nil || remote.Coins != 50 {
		t.Fatalf("remote after update: %+v %v", remote, err)
	}
}
