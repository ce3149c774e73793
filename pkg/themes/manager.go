package themes

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/getgauge/common"

	"github.com/lirany1/gauge-trend-report/pkg/config"
	"github.com/lirany1/gauge-trend-report/pkg/logger"
	"github.com/lirany1/gauge-trend-report/pkg/trendchart"
)

// Theme couples the chart palette with the page colours around it
type Theme struct {
	Name       string
	Chart      trendchart.Palette
	Background string
	Surface    string
	Text       string
	Muted      string
	Border     string
}

var builtin = map[string]Theme{
	"light": {
		Name:       "light",
		Chart:      trendchart.LightPalette,
		Background: "#f8fafc",
		Surface:    "#ffffff",
		Text:       "#0f172a",
		Muted:      "#64748b",
		Border:     "#e2e8f0",
	},
	"dark": {
		Name:       "dark",
		Chart:      trendchart.DarkPalette,
		Background: "#020617",
		Surface:    "#0f172a",
		Text:       "#f8fafc",
		Muted:      "#94a3b8",
		Border:     "#1e293b",
	},
}

// ListThemes returns the built-in theme names, sorted
func ListThemes() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns a built-in theme by name
func Lookup(name string) (Theme, error) {
	theme, ok := builtin[name]
	if !ok {
		return Theme{}, fmt.Errorf("unknown theme %q (available: %v)", name, ListThemes())
	}
	return theme, nil
}

// Manager handles theme management
type Manager struct {
	config *config.Config
}

// NewManager creates a new theme manager
func NewManager(cfg *config.Config) *Manager {
	return &Manager{config: cfg}
}

// Current resolves the configured theme. A theme given as a directory
// path keeps the light colours and only contributes assets.
func (m *Manager) Current() Theme {
	theme, err := Lookup(m.config.ThemePath)
	if err != nil {
		if m.config.ThemePath != "" {
			logger.Debugf("Theme %q is not built in, using light colours", m.config.ThemePath)
		}
		return builtin["light"]
	}
	return theme
}

// CopyAssets copies theme assets to output directory
func (m *Manager) CopyAssets(outputDir string) error {
	assetsPath := filepath.Join(m.getThemePath(m.config.ThemePath), "assets")

	if _, err := os.Stat(assetsPath); os.IsNotExist(err) {
		// Theme doesn't have assets directory, skip
		return nil
	}

	if _, err := common.MirrorDir(assetsPath, outputDir); err != nil {
		return fmt.Errorf("failed to copy theme assets: %w", err)
	}
	logger.Debugf("Copied theme assets from %s", assetsPath)
	return nil
}

// getThemePath returns the full path to a theme
func (m *Manager) getThemePath(themeName string) string {
	if filepath.IsAbs(themeName) {
		return themeName
	}

	projectThemes := filepath.Join("themes", themeName)
	if _, err := os.Stat(projectThemes); err == nil {
		return projectThemes
	}

	return themeName
}
