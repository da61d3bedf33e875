package grpcserver

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/and161185/drinkless/internal/errs"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func Test_bearerTokenFromMD_OkAndErrors(t *testing.T) {
	t.Parallel()

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer abc.def.ghi"))
	got, err := bearerTokenFromMD(ctx)
	if err != nil || got != "abc.def.ghi" {
		t.Fatalf("ok: got=%q err=%v", got, err)
	}

	ctx = metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Basic foo"))
	if _, err := bearerTokenFromMD(ctx); err == nil {
		t.Fatalf("want error on non-bearer")
	}

	ctx = metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer   "))
	if _, err := bearerTokenFromMD(ctx); err == nil {
		t.Fatalf("want error on empty token")
	}

	if _, err := bearerTokenFromMD(context.Background()); err == nil {
		t.Fatalf("want error on no metadata")
	}
}

func Test_bearerTokenFromMD_MultipleHeaders_CaseInsensitive_Spaces(t *testing.T) {
	t.Parallel()
	md := metadata.New(nil)
	md.Append("authorization", "Basic foo")
	md.Append("authorization", "  bearer   tok.part.sig   ")
	ctx := metadata.NewIncomingContext(context.Background(), md)
	got, err := bearerTokenFromMD(ctx)
	if err != nil || got != "tok.part.sig" {
		t.Fatalf("got=%q err=%v", got, err)
	}
}

func Test_toStatus(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want codes.Code
	}{
		{errs.ErrNotFound, codes.NotFound},
		{fmt.Errorf("wrapped: %w", errs.ErrVersionConflict), codes.FailedPrecondition},
		{errs.ErrAlreadyExists, codes.AlreadyExists},
		{fmt.Errorf("%w: negative coins", errs.ErrValidation), codes.InvalidArgument},
		{errs.ErrInvalidAmount, codes.InvalidArgument},
		{errs.ErrUnauthorized, codes.Unauthenticated},
		{errors.New("db down"), codes.Internal},
	}
	for _, c := range cases {
		st, _ := status.FromError(toStatus("op", c.err))
		if st.Code() != c.want {
			t.Fatalf("%v: got %s want %s", c.err, st.Code(), c.want)
		}
	}
}
