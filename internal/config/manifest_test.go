package config

import "testing"

func TestManifestRoundTrip(t *testing.T) {
	dir := t.TempDir()

	want := &Manifest{
		Prefix: "gr",
		DB:     "data/grns.db",
		Repo:   "github.com/acme/widgets",
		Addr:   "127.0.0.1:5151",
	}
	if err := SaveManifest(dir, want); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := LoadManifest(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got == nil {
		t.Fatal("expected manifest, got nil")
	}
	if *got != *want {
		t.Errorf("round trip mismatch: got %+v want %+v", got, want)
	}
}

func TestLoadManifestMissing(t *testing.T) {
	got, err := LoadManifest(t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing manifest, got %+v", got)
	}
}
