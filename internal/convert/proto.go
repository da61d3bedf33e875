// Package convert maps domain types to and from the google.protobuf.Struct
// messages carried by the Profiles gRPC service.
package convert

import (
	"fmt"
	"math"
	"time"

	model "github.com/and161185/drinkless/internal/model"
	u "github.com/gofrs/uuid/v5"
	"google.golang.org/protobuf/types/known/structpb"
)

// Field names shared by client and server.
const (
	FUserID        = "user_id"
	FUsername      = "username"
	FPassword      = "password"
	FAccessToken   = "access_token"
	FExpiresAt     = "expires_at"
	FCurrentStreak = "current_streak"
	FLongestStreak = "longest_streak"
	FLastCheckIn   = "last_check_in"
	FCoins         = "coins"
	FBadges        = "badges"
	FVer           = "ver"
	FBaseVer       = "base_ver"
	FUpdatedAt     = "updated_at"
)

// --- helpers ---

func ts(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTS(v *structpb.Value, name string) (time.Time, error) {
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return time.Time{}, fmt.Errorf("%s: want string", name)
	}
	t, err := time.Parse(time.RFC3339Nano, s.StringValue)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", name, err)
	}
	return t, nil
}

func num(v *structpb.Value, name string) (int64, error) {
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("%s: want number", name)
	}
	f := n.NumberValue
	if f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, fmt.Errorf("%s: not an integer", name)
	}
	return int64(f), nil
}

func str(s *structpb.Struct, name string) (string, error) {
	v, ok := s.GetFields()[name]
	if !ok {
		return "", fmt.Errorf("%s: missing", name)
	}
	sv, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", fmt.Errorf("%s: want string", name)
	}
	return sv.StringValue, nil
}

func strList(v *structpb.Value, name string) ([]string, error) {
	l, ok := v.GetKind().(*structpb.Value_ListValue)
	if !ok {
		return nil, fmt.Errorf("%s: want list", name)
	}
	out := make([]string, 0, len(l.ListValue.GetValues()))
	for i, e := range l.ListValue.GetValues() {
		sv, ok := e.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, fmt.Errorf("%s[%d]: want string", name, i)
		}
		out = append(out, sv.StringValue)
	}
	return out, nil
}

func listOf(in []string) *structpb.Value {
	vals := make([]*structpb.Value, 0, len(in))
	for _, s := range in {
		vals = append(vals, structpb.NewStringValue(s))
	}
	return structpb.NewListValue(&structpb.ListValue{Values: vals})
}

func optInt(fields map[string]*structpb.Value, name string) (*int, error) {
	v, ok := fields[name]
	if !ok || isNull(v) {
		return nil, nil
	}
	n, err := num(v, name)
	if err != nil {
		return nil, err
	}
	i := int(n)
	return &i, nil
}

func isNull(v *structpb.Value) bool {
	_, ok := v.GetKind().(*structpb.Value_NullValue)
	return ok
}

// --- credentials ---

// ToStructCredentials builds a Register/Login request.
func ToStructCredentials(username, password string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FUsername: structpb.NewStringValue(username),
		FPassword: structpb.NewStringValue(password),
	}}
}

// FromStructCredentials extracts username and password.
func FromStructCredentials(in *structpb.Struct) (username, password string, err error) {
	if in == nil {
		return "", "", fmt.Errorf("nil request")
	}
	if username, err = str(in, FUsername); err != nil {
		return "", "", err
	}
	if password, err = str(in, FPassword); err != nil {
		return "", "", err
	}
	return username, password, nil
}

// ToStructUserID builds the Register response.
func ToStructUserID(id string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{FUserID: structpb.NewStringValue(id)}}
}

// FromStructUserID parses the Register response.
func FromStructUserID(in *structpb.Struct) (u.UUID, error) {
	s, err := str(in, FUserID)
	if err != nil {
		return u.Nil, err
	}
	var id u.UUID
	if err := id.UnmarshalText([]byte(s)); err != nil {
		return u.Nil, fmt.Errorf("invalid id: %w", err)
	}
	return id, nil
}

// --- login ---

// ToStructLogin builds the Login response.
func ToStructLogin(tok model.Tokens, userID u.UUID) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FAccessToken: structpb.NewStringValue(tok.AccessToken),
		FExpiresAt:   structpb.NewStringValue(ts(tok.ExpiresAt)),
		FUserID:      structpb.NewStringValue(userID.String()),
	}}
}

// FromStructLogin parses the Login response.
func FromStructLogin(in *structpb.Struct) (model.Tokens, u.UUID, error) {
	access, err := str(in, FAccessToken)
	if err != nil {
		return model.Tokens{}, u.Nil, err
	}
	id, err := FromStructUserID(in)
	if err != nil {
		return model.Tokens{}, u.Nil, err
	}
	tok := model.Tokens{AccessToken: access}
	if v, ok := in.GetFields()[FExpiresAt]; ok {
		if tok.ExpiresAt, err = parseTS(v, FExpiresAt); err != nil {
			return model.Tokens{}, u.Nil, err
		}
	}
	return tok, id, nil
}

// --- profile (server -> client) ---

// ToStructProfile converts a domain profile to its wire form.
func ToStructProfile(p model.Profile) *structpb.Struct {
	f := map[string]*structpb.Value{
		FUserID:        structpb.NewStringValue(p.UserID.String()),
		FCurrentStreak: structpb.NewNumberValue(float64(p.CurrentStreak)),
		FLongestStreak: structpb.NewNumberValue(float64(p.LongestStreak)),
		FCoins:         structpb.NewNumberValue(float64(p.Coins)),
		FBadges:        listOf(p.Badges),
		FVer:           structpb.NewNumberValue(float64(p.Ver)),
	}
	if p.LastCheckIn != nil {
		f[FLastCheckIn] = structpb.NewStringValue(ts(*p.LastCheckIn))
	}
	if !p.UpdatedAt.IsZero() {
		f[FUpdatedAt] = structpb.NewStringValue(ts(p.UpdatedAt))
	}
	return &structpb.Struct{Fields: f}
}

// FromStructProfile parses a wire profile.
func FromStructProfile(in *structpb.Struct) (model.Profile, error) {
	if in == nil {
		return model.Profile{}, fmt.Errorf("nil profile")
	}
	f := in.GetFields()
	var p model.Profile
	var err error
	if p.UserID, err = FromStructUserID(in); err != nil {
		return model.Profile{}, err
	}
	ints := []struct {
		name string
		dst  *int
	}{
		{FCurrentStreak, &p.CurrentStreak},
		{FLongestStreak, &p.LongestStreak},
		{FCoins, &p.Coins},
	}
	for _, it := range ints {
		v, err := optInt(f, it.name)
		if err != nil {
			return model.Profile{}, err
		}
		if v != nil {
			*it.dst = *v
		}
	}
	if v, ok := f[FVer]; ok {
		if p.Ver, err = num(v, FVer); err != nil {
			return model.Profile{}, err
		}
	}
	p.Badges = []string{}
	if v, ok := f[FBadges]; ok {
		if p.Badges, err = strList(v, FBadges); err != nil {
			return model.Profile{}, err
		}
	}
	if v, ok := f[FLastCheckIn]; ok && !isNull(v) {
		t, err := parseTS(v, FLastCheckIn)
		if err != nil {
			return model.Profile{}, err
		}
		p.LastCheckIn = &t
	}
	if v, ok := f[FUpdatedAt]; ok {
		if p.UpdatedAt, err = parseTS(v, FUpdatedAt); err != nil {
			return model.Profile{}, err
		}
	}
	return p, nil
}

// --- patch (client -> server) ---

// ToStructPatch converts a patch; unset fields are omitted.
func ToStructPatch(p model.ProfilePatch) *structpb.Struct {
	f := map[string]*structpb.Value{}
	if p.CurrentStreak != nil {
		f[FCurrentStreak] = structpb.NewNumberValue(float64(*p.CurrentStreak))
	}
	if p.LongestStreak != nil {
		f[FLongestStreak] = structpb.NewNumberValue(float64(*p.LongestStreak))
	}
	if p.Coins != nil {
		f[FCoins] = structpb.NewNumberValue(float64(*p.Coins))
	}
	if p.LastCheckIn != nil {
		f[FLastCheckIn] = structpb.NewStringValue(ts(*p.LastCheckIn))
	}
	if len(p.Badges) > 0 {
		f[FBadges] = listOf(p.Badges)
	}
	if p.BaseVer != nil {
		f[FBaseVer] = structpb.NewNumberValue(float64(*p.BaseVer))
	}
	return &structpb.Struct{Fields: f}
}

// FromStructPatch parses a wire patch. Absent and null fields stay unset.
func FromStructPatch(in *structpb.Struct) (model.ProfilePatch, error) {
	if in == nil {
		return model.ProfilePatch{}, fmt.Errorf("nil patch")
	}
	f := in.GetFields()
	var p model.ProfilePatch
	var err error
	if p.CurrentStreak, err = optInt(f, FCurrentStreak); err != nil {
		return model.ProfilePatch{}, err
	}
	if p.LongestStreak, err = optInt(f, FLongestStreak); err != nil {
		return model.ProfilePatch{}, err
	}
	if p.Coins, err = optInt(f, FCoins); err != nil {
		return model.ProfilePatch{}, err
	}
	if v, ok := f[FLastCheckIn]; ok && !isNull(v) {
		t, err := parseTS(v, FLastCheckIn)
		if err != nil {
			return model.ProfilePatch{}, err
		}
		p.LastCheckIn = &t
	}
	if v, ok := f[FBadges]; ok && !isNull(v) {
		if p.Badges, err = strList(v, FBadges); err != nil {
			return model.ProfilePatch{}, err
		}
	}
	if v, ok := f[FBaseVer]; ok && !isNull(v) {
		n, err := num(v, FBaseVer)
		if err != nil {
			return model.ProfilePatch{}, err
		}
		p.BaseVer = &n
	}
	return p, nil
}
