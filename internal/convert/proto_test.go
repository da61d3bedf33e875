package convert

import (
	"strings"
	"testing"
	"time"

	model "github.com/and161185/drinkless/internal/model"
	u "github.com/gofrs/uuid/v5"
	"google.golang.org/protobuf/types/known/structpb"
)

func mustUUID(t *testing.T, s string) u.UUID {
	t.Helper()
	id, err := u.FromString(s)
	if err != nil {
		t.Fatalf("bad uuid %q: %v", s, err)
	}
	return id
}

func TestProfile_ToFromStruct(t *testing.T) {
	t.Parallel()

	day := time.Date(2026, 10, 14, 21, 30, 0, 0, time.UTC)
	in := model.Profile{
		UserID:        mustUUID(t, "6f1cbe8e-b2e7-4a3b-9f6e-2a2c0f2f9c11"),
		CurrentStreak: 4,
		LongestStreak: 11,
		LastCheckIn:   &day,
		Coins:         325,
		Badges:        []string{"bronze", "silver"},
		Ver:           17,
		UpdatedAt:     day.Add(time.Minute),
	}
	got, err := FromStructProfile(ToStructProfile(in))
	if err != nil {
		t.Fatalf("FromStructProfile: %v", err)
	}
	if got.UserID != in.UserID || got.CurrentStreak != 4 || got.LongestStreak != 11 || got.Coins != 325 || got.Ver != 17 {
		t.Fatalf("mismatch: %+v", got)
	}
	if got.LastCheckIn == nil || !got.LastCheckIn.Equal(day) {
		t.Fatalf("last_check_in mismatch: %v", got.LastCheckIn)
	}
	if len(got.Badges) != 2 || got.Badges[1] != "silver" {
		t.Fatalf("badges mismatch: %v", got.Badges)
	}
}

func TestProfile_NoCheckIn(t *testing.T) {
	t.Parallel()

	s := ToStructProfile(model.Profile{UserID: u.Must(u.NewV4())})
	if _, ok := s.GetFields()[FLastCheckIn]; ok {
		t.Fatalf("unset check-in must be omitted")
	}
	p, err := FromStructProfile(s)
	if err != nil {
		t.Fatalf("FromStructProfile: %v", err)
	}
	if p.LastCheckIn != nil || p.Badges == nil {
		t.Fatalf("want nil check-in and empty badges, got %+v", p)
	}
}

func TestFromStructProfile_Errors(t *testing.T) {
	t.Parallel()

	if _, err := FromStructProfile(nil); err == nil {
		t.Fatalf("want error on nil")
	}
	bad := ToStructProfile(model.Profile{UserID: u.Must(u.NewV4())})
	bad.Fields[FUserID] = structpb.NewStringValue("not-a-uuid")
	if _, err := FromStructProfile(bad); err == nil || !strings.Contains(err.Error(), "invalid id") {
		t.Fatalf("want invalid id error, got: %v", err)
	}
	frac := ToStructProfile(model.Profile{UserID: u.Must(u.NewV4())})
	frac.Fields[FCoins] = structpb.NewNumberValue(1.5)
	if _, err := FromStructProfile(frac); err == nil {
		t.Fatalf("want error on fractional coins")
	}
}

func TestPatch_ToFromStruct(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)
	base := int64(3)
	in := model.ProfilePatch{
		CurrentStreak: model.Int(2),
		Coins:         model.Int(100),
		LastCheckIn:   &now,
		Badges:        []string{"gold"},
		BaseVer:       &base,
	}
	s := ToStructPatch(in)
	if _, ok := s.GetFields()[FLongestStreak]; ok {
		t.Fatalf("unset field must be omitted")
	}
	got, err := FromStructPatch(s)
	if err != nil {
		t.Fatalf("FromStructPatch: %v", err)
	}
	if *got.CurrentStreak != 2 || *got.Coins != 100 || got.LongestStreak != nil || *got.BaseVer != 3 {
		t.Fatalf("mismatch: %+v", got)
	}
	if !got.LastCheckIn.Equal(now) || got.Badges[0] != "gold" {
		t.Fatalf("mismatch: %+v", got)
	}
}

func TestFromStructPatch_NullAndTypeErrors(t *testing.T) {
	t.Parallel()

	s := &structpb.Struct{Fields: map[string]*structpb.Value{
		FCoins:       structpb.NewNullValue(),
		FLastCheckIn: structpb.NewNullValue(),
	}}
	p, err := FromStructPatch(s)
	if err != nil {
		t.Fatalf("FromStructPatch: %v", err)
	}
	if !p.Empty() {
		t.Fatalf("null fields must stay unset: %+v", p)
	}

	s.Fields[FCoins] = structpb.NewStringValue("ten")
	if _, err := FromStructPatch(s); err == nil {
		t.Fatalf("want error on string coins")
	}
	delete(s.Fields, FCoins)
	s.Fields[FBadges] = structpb.NewListValue(&structpb.ListValue{Values: []*structpb.Value{structpb.NewNumberValue(1)}})
	if _, err := FromStructPatch(s); err == nil {
		t.Fatalf("want error on non-string badge")
	}
}

func TestCredentialsAndLogin(t *testing.T) {
	t.Parallel()

	name, pw, err := FromStructCredentials(ToStructCredentials("alice", "pw"))
	if err != nil || name != "alice" || pw != "pw" {
		t.Fatalf("credentials: %q %q %v", name, pw, err)
	}
	if _, _, err := FromStructCredentials(&structpb.Struct{}); err == nil {
		t.Fatalf("want error on missing username")
	}

	id := u.Must(u.NewV4())
	exp := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	tok, gotID, err := FromStructLogin(ToStructLogin(model.Tokens{AccessToken: "jwt", ExpiresAt: exp}, id))
	if err != nil || tok.AccessToken != "jwt" || !tok.ExpiresAt.Equal(exp) || gotID != id {
		t.Fatalf("login: %+v %v %v", tok, gotID, err)
	}
}
