package version

import "testing"

func TestVersionStringShort(t *testing.T) {
	tests := []struct {
		version, commit, want string
	}{
		{"", "", "(unknown build)"},
		{"v1.2.0", "", "v1.2.0"},
		{"v1.2.0-4-gabcdef1", "abcdef1", "v1.2.0-4-gabcdef1 (non-release)"},
		{"v1.2.0", "1234567", "v1.2.0 (commit 1234567)"},
	}
	oldVersion, oldCommit := Version, Commit
	defer func() { Version, Commit = oldVersion, oldCommit }()
	for _, tt := range tests {
		Version, Commit = tt.version, tt.commit
		if got := VersionStringShort(); got != tt.want {
			t.Errorf("VersionStringShort() with %q/%q = %q, want %q", tt.version, tt.commit, got, tt.want)
		}
	}
}
