package multiplexer

import "testing"

func TestParseVersion(t *testing.T) {
	cases := []struct {
		in        string
		wantMajor int
		wantMinor int
		wantOK    bool
	}{
		{"tmux 3.3a", 3, 3, true},
		{"3.2", 3, 2, true},
		{"tmux 3.0", 3, 0, true},
		{"tmux next-3.4", 3, 4, true},
		{"garbage", 0, 0, false},
	}

	for _, c := range cases {
		v, ok := parseVersion(c.in)
		if ok != c.wantOK {
			t.Errorf("parseVersion(%q) ok = %v, want %v", c.in, ok, c.wantOK)
			continue
		}
		if !ok {
			continue
		}
		if v.major != c.wantMajor || v.minor != c.wantMinor {
			t.Errorf("parseVersion(%q) = %d.%d, want %d.%d", c.in, v.major, v.minor, c.wantMajor, c.wantMinor)
		}
	}
}

func TestVersionAtLeast(t *testing.T) {
	cases := []struct {
		v, min version
		want   bool
	}{
		{version{3, 3}, version{3, 0}, true},
		{version{3, 0}, version{3, 0}, true},
		{version{2, 9}, version{3, 0}, false},
		{version{4, 0}, version{3, 9}, true},
	}
	for _, c := range cases {
		if got := c.v.atLeast(c.min); got != c.want {
			t.Errorf("%+v.atLeast(%+v) = %v, want %v", c.v, c.min, got, c.want)
		}
	}
}
