package infra

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/adscrub/adscrub/internal/domain"
)

// XDG autostart desktop entry template. The agent starts detached so the
// login session is not held up.
const desktopEntryTemplate = `[Desktop Entry]
Type=Application
Name=adscrub
Comment=Ad-window suppression agent
Exec={{.ExecutablePath}} run --detach
X-GNOME-Autostart-enabled=true
NoDisplay=true
Terminal=false
`

type desktopEntryData struct {
	ExecutablePath string
}

// XDGAutostart implements domain.AutostartManager with a desktop entry
// under ~/.config/autostart.
type XDGAutostart struct {
	entryPath string
}

// NewXDGAutostart creates the manager for the standard autostart location.
func NewXDGAutostart() (*XDGAutostart, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to locate config directory: %w", err)
	}
	return &XDGAutostart{
		entryPath: filepath.Join(configDir, "autostart", "adscrub.desktop"),
	}, nil
}

// NewXDGAutostartWithPath creates a manager writing to a specific entry path
// (for testing).
func NewXDGAutostartWithPath(entryPath string) *XDGAutostart {
	return &XDGAutostart{entryPath: entryPath}
}

// Enable writes the autostart entry pointing at execPath.
func (a *XDGAutostart) Enable(execPath string) error {
	tmpl, err := template.New("desktop").Parse(desktopEntryTemplate)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, desktopEntryData{ExecutablePath: execPath}); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(a.entryPath), 0755); err != nil {
		return fmt.Errorf("failed to create autostart directory: %w", err)
	}
	return os.WriteFile(a.entryPath, buf.Bytes(), 0644)
}

// Disable removes the autostart entry.
func (a *XDGAutostart) Disable() error {
	err := os.Remove(a.entryPath)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// IsEnabled checks if the autostart entry is installed.
func (a *XDGAutostart) IsEnabled() bool {
	_, err := os.Stat(a.entryPath)
	return err == nil
}

// EntryPath returns the autostart entry file path.
func (a *XDGAutostart) EntryPath() string {
	return a.entryPath
}

// Ensure XDGAutostart implements domain.AutostartManager.
var _ domain.AutostartManager = (*XDGAutostart)(nil)
