package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/and161185/drinkless/internal/config"
	"github.com/and161185/drinkless/internal/content"
	"github.com/and161185/drinkless/internal/errs"
	"github.com/and161185/drinkless/internal/tasks"
)

// device returns a runner bound to a private sqlite cache and session file.
func device(t *testing.T) func(args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	base := []string{
		"--cache", "sqlite",
		"--cache-path", filepath.Join(dir, "cache.db"),
		"--session", filepath.Join(dir, "session.json"),
		"--tz", "UTC",
	}
	return func(args ...string) (string, error) {
		buf := &bytes.Buffer{}
		root := newRootCmd()
		root.SetOut(buf)
		root.SetErr(buf)
		root.SetArgs(append(append([]string{}, base...), args...))
		err := root.Execute()
		return buf.String(), err
	}
}

func mustRun(t *testing.T, run func(...string) (string, error), args ...string) string {
	t.Helper()
	out, err := run(args...)
	if err != nil {
		t.Fatalf("%v: %v\n%s", args, err, out)
	}
	return out
}

func TestRootHelp(t *testing.T) {
	t.Parallel()
	out := mustRun(t, device(t), "--help")
	if !strings.Contains(out, "no-drinks") {
		t.Fatalf("help lacks commands: %s", out)
	}
}

func TestVersion(t *testing.T) {
	t.Parallel()
	out := mustRun(t, device(t), "version")
	if !strings.HasPrefix(out, "drinkless dev") {
		t.Fatalf("version output: %q", out)
	}
}

func TestDailyFlow_Anonymous(t *testing.T) {
	t.Parallel()
	run := device(t)

	list, err := tasks.ForDay(0, nil, content.Default())
	if err != nil {
		t.Fatalf("ForDay: %v", err)
	}
	var last string
	for _, task := range list {
		last = mustRun(t, run, "toggle", task.ID)
	}
	if !strings.Contains(last, "Day complete! Streak: 1") {
		t.Fatalf("last toggle should settle: %q", last)
	}
	if out := mustRun(t, run, "wallet"); out != "50 coins\n" {
		t.Fatalf("wallet after settle: %q", out)
	}
	if out := mustRun(t, run, "today"); !strings.Contains(out, "(settled)") || !strings.Contains(out, "Streak: 1") {
		t.Fatalf("today: %s", out)
	}

	if out := mustRun(t, run, "no-drinks"); !strings.Contains(out, "+25 coins") {
		t.Fatalf("no-drinks: %q", out)
	}
	if _, err := run("no-drinks"); !errors.Is(err, errs.ErrAlreadyLogged) {
		t.Fatalf("second no-drinks: %v", err)
	}
	if out := mustRun(t, run, "balance"); out != "75 coins\n" {
		t.Fatalf("balance: %q", out)
	}
}

func TestDrinksResetStreak(t *testing.T) {
	t.Parallel()
	run := device(t)

	list, _ := tasks.ForDay(0, nil, content.Default())
	for _, task := range list {
		mustRun(t, run, "toggle", task.ID)
	}
	mustRun(t, run, "drinks", "2")
	if out := mustRun(t, run, "streak"); !strings.HasPrefix(out, "current=0 longest=1") {
		t.Fatalf("streak after drinks: %q", out)
	}
	if _, err := run("drinks", "many"); err == nil {
		t.Fatalf("non-numeric count should fail")
	}
}

func TestJarAndShop(t *testing.T) {
	t.Parallel()
	run := device(t)

	out := mustRun(t, run, "jar", "add", "3600")
	if !strings.Contains(out, "milestone 1 reached") {
		t.Fatalf("jar add: %q", out)
	}
	if out := mustRun(t, run, "today"); !strings.Contains(out, "New jar milestone 1") {
		t.Fatalf("notice missing: %s", out)
	}
	mustRun(t, run, "jar", "dismiss")
	if out := mustRun(t, run, "today"); strings.Contains(out, "New jar milestone") {
		t.Fatalf("notice not dismissed: %s", out)
	}

	if out := mustRun(t, run, "buy", "first-step"); out != "bought first-step\n" {
		t.Fatalf("buy: %q", out)
	}
	if out := mustRun(t, run, "shop"); !strings.Contains(out, "First Step (owned)") {
		t.Fatalf("shop: %s", out)
	}
	if out := mustRun(t, run, "buy", "first-step"); out != "already owned\n" {
		t.Fatalf("rebuy: %q", out)
	}
	if _, err := run("buy", "jar-master"); !errors.Is(err, errs.ErrInsufficientCoins) {
		t.Fatalf("expensive badge: %v", err)
	}
	if _, err := run("buy", "nope"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("unknown badge: %v", err)
	}

	// reset keeps the paid milestone: refilling does not pay again
	mustRun(t, run, "jar", "reset")
	if out := mustRun(t, run, "jar", "add", "3500"); strings.Contains(out, "reached") {
		t.Fatalf("milestone paid twice: %q", out)
	}
	if out := mustRun(t, run, "wallet"); out != "0 coins\n" {
		t.Fatalf("wallet: %q", out)
	}
}

func TestToggle_Rejects(t *testing.T) {
	t.Parallel()
	run := device(t)

	_, err := run("toggle", "motivation:1")
	if !errors.Is(err, errs.ErrNotActionable) {
		t.Fatalf("future task: %v", err)
	}
	var buf bytes.Buffer
	printErr(&buf, err)
	if buf.String() != "that day has not started yet\n" {
		t.Fatalf("printErr: %q", buf.String())
	}

	if _, err := run("toggle", "breathing:0"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("task not in list: %v", err)
	}
	if _, err := run("toggle", "bogus"); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("bad id: %v", err)
	}
}

func TestTasks_Offsets(t *testing.T) {
	t.Parallel()
	run := device(t)

	out := mustRun(t, run, "tasks", "--day", "-1")
	if !strings.Contains(out, "breathing:-1") {
		t.Fatalf("yesterday should include breathing: %s", out)
	}
	out = mustRun(t, run, "tasks", "--day", "3")
	if !strings.Contains(out, "(locked)") {
		t.Fatalf("future tasks should be locked: %s", out)
	}
	if _, err := run("tasks", "--day", "15"); !errors.Is(err, errs.ErrInvalidOffset) {
		t.Fatalf("offset 15: %v", err)
	}
}

func TestLogoutAndDelete(t *testing.T) {
	t.Parallel()
	run := device(t)

	mustRun(t, run, "no-drinks")
	mustRun(t, run, "logout")
	if out := mustRun(t, run, "wallet"); out != "0 coins\n" {
		t.Fatalf("logout should forget the profile mirror: %q", out)
	}

	if _, err := run("delete-account"); err == nil {
		t.Fatalf("delete without --yes must refuse")
	}
	mustRun(t, run, "delete-account", "--yes")
	if out := mustRun(t, run, "today"); !strings.Contains(out, "Drinks: not reported") {
		t.Fatalf("delete should wipe local records: %s", out)
	}
}

func TestPrintErr(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want string
	}{
		{status.Error(codes.NotFound, "gone"), "rpc error: code=NotFound msg=gone\n"},
		{errs.ErrUnauthorized, "login required: unauthorized\n"},
		{fmt.Errorf("spend coins: %w", errs.ErrVersionConflict), "profile changed on another device, run the command again\n"},
		{errors.New("plain"), "plain\n"},
	}
	for _, c := range cases {
		var buf bytes.Buffer
		printErr(&buf, c.err)
		if buf.String() != c.want {
			t.Fatalf("printErr(%v) = %q, want %q", c.err, buf.String(), c.want)
		}
	}
}

func TestOpenCache_Unknown(t *testing.T) {
	t.Parallel()
	if _, _, err := openCache(context.Background(), config.Device{Cache: "floppy"}); err == nil {
		t.Fatalf("unknown cache should fail")
	}
}
