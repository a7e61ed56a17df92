package observability

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-outreach-backend/internal/browser"
)

// ScreenshotDir is the artifacts subdirectory, relative to the assets root.
const ScreenshotDir = "observability/screenshots"

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Artifacts writes diagnostic captures of a failed browser action.
type Artifacts struct {
	// AssetsDir is the root directory; stored paths are relative to it.
	AssetsDir string
	Log       zerolog.Logger
}

// Capture is what was collected for one failure. Missing parts are zero.
type Capture struct {
	Screenshot  string // relative to AssetsDir
	ConsoleLogs []browser.ConsoleEntry
}

// Capture saves a full-page screenshot and collects the console logs of
// page. It is best effort: errors are logged and never returned. A nil
// page (browser never launched) yields an empty Capture.
func (a *Artifacts) Capture(ctx context.Context, page browser.Page, key browser.SessionKey, suffix string) Capture {
	if page == nil {
		return Capture{}
	}
	out := Capture{ConsoleLogs: page.ConsoleLogs()}

	png, err := page.Screenshot(ctx)
	if err != nil {
		a.Log.Warn().Err(err).Str("session", key.String()).Msg("screenshot failed")
		return out
	}
	rel := filepath.Join(ScreenshotDir, fmt.Sprintf("%s--%s.png", sanitize(key.FileStem()), sanitize(suffix)))
	abs := filepath.Join(a.AssetsDir, rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		a.Log.Warn().Err(err).Str("dir", filepath.Dir(abs)).Msg("create screenshot dir failed")
		return out
	}
	if err := os.WriteFile(abs, png, 0o644); err != nil {
		a.Log.Warn().Err(err).Str("path", abs).Msg("write screenshot failed")
		return out
	}
	out.Screenshot = filepath.ToSlash(rel)
	return out
}

func sanitize(s string) string { return unsafeName.ReplaceAllString(s, "_") }
