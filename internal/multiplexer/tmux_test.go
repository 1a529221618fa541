package multiplexer

import (
	"context"
	"os/exec"
	"slices"
	"testing"
)

func TestQualifyUnqualify(t *testing.T) {
	tm := &Tmux{prefix: "summd-"}

	if got := tm.qualify("abc123"); got != "summd-abc123" {
		t.Errorf("qualify = %q, want %q", got, "summd-abc123")
	}

	name, ok := tm.unqualify("summd-abc123")
	if !ok || name != "abc123" {
		t.Errorf("unqualify(summd-abc123) = (%q, %v), want (abc123, true)", name, ok)
	}

	if _, ok := tm.unqualify("other-abc123"); ok {
		t.Error("unqualify should reject names without this adapter's prefix")
	}
}

func TestFlattenEnv(t *testing.T) {
	got := flattenEnv(map[string]string{"FOO": "bar"})
	if len(got) != 1 || got[0] != "FOO=bar" {
		t.Errorf("flattenEnv = %v, want [FOO=bar]", got)
	}
}

func TestShellQuote(t *testing.T) {
	cases := map[string]string{
		"/tmp/log.txt":      "'/tmp/log.txt'",
		"/tmp/o'brien.log":  `'/tmp/o'\''brien.log'`,
	}
	for in, want := range cases {
		if got := shellQuote(in); got != want {
			t.Errorf("shellQuote(%q) = %q, want %q", in, got, want)
		}
	}
}

// fakeExecCommand lets a test observe the args a Tmux method would have
// passed to tmux, without actually invoking it. It swaps execCommand for
// the duration of one test.
func fakeExecCommand(t *testing.T, calls *[][]string) {
	t.Helper()
	orig := execCommand
	execCommand = func(name string, args ...string) *exec.Cmd {
		*calls = append(*calls, append([]string{name}, args...))
		if slices.Contains(args, "has-session") {
			return exec.Command("false")
		}
		return exec.Command("true")
	}
	t.Cleanup(func() { execCommand = orig })
}

func TestKillSkipsWhenAbsent(t *testing.T) {
	var calls [][]string
	fakeExecCommand(t, &calls)

	tm := &Tmux{prefix: "summd-", tmuxPath: "tmux"}
	if err := tm.Kill(context.Background(), "nope"); err != nil {
		t.Fatalf("Kill on absent session: %v", err)
	}
	for _, c := range calls {
		if slices.Contains(c, "kill-session") {
			t.Error("Kill should not invoke kill-session when Exists is false")
		}
	}
}
