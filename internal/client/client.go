// Package client talks to the remote profile store over gRPC. Its Client
// satisfies profile.Remote, so the device code never sees wire types.
package client

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"

	"github.com/gofrs/uuid/v5"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/and161185/drinkless/internal/api"
	"github.com/and161185/drinkless/internal/convert"
	"github.com/and161185/drinkless/internal/errs"
	"github.com/and161185/drinkless/internal/model"
)

// TLS selects the transport security of Dial.
type TLS struct {
	CAPath     string // custom root CA; system roots when empty
	SkipVerify bool   // accept any server certificate (dev only)
	Plaintext  bool   // no TLS at all (localhost only)
}

func (t TLS) creds() (credentials.TransportCredentials, error) {
	switch {
	case t.Plaintext:
		return insecure.NewCredentials(), nil
	case t.SkipVerify:
		return credentials.NewTLS(&tls.Config{InsecureSkipVerify: true}), nil
	case t.CAPath == "":
		return credentials.NewClientTLSFromCert(nil, ""), nil
	}
	pem, err := os.ReadFile(t.CAPath)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, errors.New("bad CA cert")
	}
	return credentials.NewTLS(&tls.Config{RootCAs: pool}), nil
}

// Dial opens a connection to addr. The caller closes the returned conn.
func Dial(addr string, t TLS, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	creds, err := t.creds()
	if err != nil {
		return nil, err
	}
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(creds)}, opts...)
	return grpc.NewClient(addr, opts...)
}

// Client wraps the Profiles service. token supplies the bearer token for
// authenticated calls and may return "" when signed out.
type Client struct {
	rpc   api.ProfilesClient
	token func() string
}

// New binds a Client to an open connection.
func New(cc grpc.ClientConnInterface, token func() string) *Client {
	if token == nil {
		token = func() string { return "" }
	}
	return &Client{rpc: api.NewProfilesClient(cc), token: token}
}

func (c *Client) authed(ctx context.Context) (context.Context, error) {
	tok := c.token()
	if tok == "" {
		return nil, fmt.Errorf("no session: %w", errs.ErrUnauthorized)
	}
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+tok), nil
}

// Register creates an account and returns its id.
func (c *Client) Register(ctx context.Context, username, password string) (uuid.UUID, error) {
	resp, err := c.rpc.Register(ctx, convert.ToStructCredentials(username, password))
	if err != nil {
		return uuid.Nil, fromStatus(err)
	}
	return convert.FromStructUserID(resp)
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, username, password string) (model.Tokens, uuid.UUID, error) {
	resp, err := c.rpc.Login(ctx, convert.ToStructCredentials(username, password))
	if err != nil {
		return model.Tokens{}, uuid.Nil, fromStatus(err)
	}
	return convert.FromStructLogin(resp)
}

// Get fetches the profile of the token's subject.
func (c *Client) Get(ctx context.Context, userID uuid.UUID) (*model.Profile, error) {
	ctx, err := c.authed(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := c.rpc.GetProfile(ctx, &emptypb.Empty{})
	if err != nil {
		return nil, fromStatus(err)
	}
	return c.profile(resp, userID)
}

// Upsert sends a partial update and returns the stored profile.
func (c *Client) Upsert(ctx context.Context, userID uuid.UUID, patch model.ProfilePatch) (*model.Profile, error) {
	ctx, err := c.authed(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := c.rpc.UpsertProfile(ctx, convert.ToStructPatch(patch))
	if err != nil {
		return nil, fromStatus(err)
	}
	return c.profile(resp, userID)
}

// Delete removes the account together with its profile.
func (c *Client) Delete(ctx context.Context, _ uuid.UUID) error {
	ctx, err := c.authed(ctx)
	if err != nil {
		return err
	}
	if _, err := c.rpc.DeleteAccount(ctx, &emptypb.Empty{}); err != nil {
		return fromStatus(err)
	}
	return nil
}

// profile decodes a response and rejects one that belongs to another user,
// which happens when the saved token and the expected identity disagree.
func (c *Client) profile(resp *structpb.Struct, want uuid.UUID) (*model.Profile, error) {
	p, err := convert.FromStructProfile(resp)
	if err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	if want != uuid.Nil && p.UserID != want {
		return nil, fmt.Errorf("profile of %s, session of %s: %w", p.UserID, want, errs.ErrUnauthorized)
	}
	return &p, nil
}

// fromStatus turns gRPC status codes back into domain sentinels while
// keeping the status for printing.
func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	var sentinel error
	switch st.Code() {
	case codes.NotFound:
		sentinel = errs.ErrNotFound
	case codes.FailedPrecondition:
		sentinel = errs.ErrVersionConflict
	case codes.AlreadyExists:
		sentinel = errs.ErrAlreadyExists
	case codes.InvalidArgument:
		sentinel = errs.ErrValidation
	case codes.Unauthenticated:
		sentinel = errs.ErrUnauthorized
	default:
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}
