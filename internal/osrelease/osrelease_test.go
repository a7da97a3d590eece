package osrelease

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestParseUbuntu(t *testing.T) {
	rel := Parse([]byte("NAME=\"Ubuntu\"\nID=ubuntu\nID_LIKE=debian\nVERSION_ID=\"22.04\"\n# comment\n"))
	if rel.ID != Ubuntu {
		t.Fatalf("ID = %q", rel.ID)
	}
	if rel.VersionID != "22.04" {
		t.Fatalf("VersionID = %q", rel.VersionID)
	}
	if len(rel.IDLike) != 1 || rel.IDLike[0] != "debian" {
		t.Fatalf("IDLike = %v", rel.IDLike)
	}
	if !rel.Is(Ubuntu) || rel.Is(RHEL) || rel.Is(CentOS) {
		t.Fatal("unexpected Is results for ubuntu release")
	}
}

func TestParseRHELLikeIsNotCentOS(t *testing.T) {
	rel := Parse([]byte("ID=\"rhel\"\nID_LIKE=\"fedora\"\n"))
	if !rel.Is(RHEL) {
		t.Fatal("expected rhel")
	}
	if rel.Is(CentOS) {
		t.Fatal("rhel must not report centos")
	}
}

func TestLoadMissingFile(t *testing.T) {
	rel, err := Load(filepath.Join(t.TempDir(), "missing"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if rel.ID != "" {
		t.Fatalf("expected empty ID, got %q", rel.ID)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "os-release")
	if err := os.WriteFile(path, []byte("ID=centos\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	rel, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !rel.Is(CentOS) {
		t.Fatalf("expected centos, got %q", rel.ID)
	}
}

func TestKnown(t *testing.T) {
	for _, id := range []string{Ubuntu, CentOS, RHEL} {
		if !Known(id) {
			t.Fatalf("expected %q known", id)
		}
	}
	if Known("windows") {
		t.Fatal("windows must not be known")
	}
	if !Static(Ubuntu).Is(Ubuntu) || Static(Ubuntu).Is(RHEL) {
		t.Fatal("Static detector mismatch")
	}
}

func TestLoadReportsKernel(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("uname release only asserted on linux")
	}
	for _, path := range []string{filepath.Join(t.TempDir(), "missing"), writeRelease(t, "ID=ubuntu\n")} {
		rel, err := Load(path)
		if err != nil {
			t.Fatalf("Load(%s): %v", path, err)
		}
		if rel.Kernel == "" {
			t.Fatalf("Load(%s) left Kernel empty", path)
		}
	}
}

func writeRelease(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "os-release")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
