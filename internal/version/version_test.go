package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	info := Get()
	if info.Version != Version {
		t.Errorf("Expected version %q, got %q", Version, info.Version)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("Expected go version %q, got %q", runtime.Version(), info.GoVersion)
	}
	if info.Platform != runtime.GOOS+"/"+runtime.GOARCH {
		t.Errorf("Unexpected platform %q", info.Platform)
	}
}

func TestBanner(t *testing.T) {
	b := Banner()
	if !strings.HasPrefix(b, Name+" "+Version) {
		t.Errorf("Banner should start with name and version, got %q", b)
	}
	if !strings.Contains(b, GitCommit) {
		t.Errorf("Banner should carry the commit, got %q", b)
	}
}
