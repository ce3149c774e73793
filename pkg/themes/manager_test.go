package themes

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lirany1/gauge-trend-report/pkg/config"
)

func TestListThemes(t *testing.T) {
	got := ListThemes()
	want := []string{"dark", "light"}
	if len(got) != len(want) {
		t.Fatalf("ListThemes() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ListThemes()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestLookup(t *testing.T) {
	theme, err := Lookup("dark")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if theme.Chart.Name != "dark" {
		t.Errorf("Chart palette = %v, want %v", theme.Chart.Name, "dark")
	}

	if _, err := Lookup("neon"); err == nil {
		t.Error("expected error for unknown theme")
	}
}

func TestManager_Current(t *testing.T) {
	cfg := config.NewConfig()
	cfg.ThemePath = "/opt/themes/corporate"

	if got := NewManager(cfg).Current().Name; got != "light" {
		t.Errorf("Current() for a theme directory = %v, want %v", got, "light")
	}

	cfg.ThemePath = "dark"
	if got := NewManager(cfg).Current().Name; got != "dark" {
		t.Errorf("Current() = %v, want %v", got, "dark")
	}
}

func TestManager_CopyAssets(t *testing.T) {
	themeDir := t.TempDir()
	assets := filepath.Join(themeDir, "assets", "css")
	if err := os.MkdirAll(assets, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(assets, "extra.css"), []byte("body{}"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := config.NewConfig()
	cfg.ThemePath = themeDir
	out := t.TempDir()

	if err := NewManager(cfg).CopyAssets(out); err != nil {
		t.Fatalf("CopyAssets() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "css", "extra.css")); err != nil {
		t.Errorf("asset not copied: %v", err)
	}

	// built-in themes have no asset directory
	cfg.ThemePath = "light"
	if err := NewManager(cfg).CopyAssets(t.TempDir()); err != nil {
		t.Errorf("CopyAssets() for built-in theme error = %v", err)
	}
}
