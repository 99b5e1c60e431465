package catalog

import (
	"embed"
	"log/slog"
)

//go:embed selectors.json
var embeddedSelectors embed.FS

// LoadConfig tries to load selectors in the following order:
// 1. External file at overridePath, when set
// 2. Embedded selectors.json
// 3. Hardcoded defaults
func LoadConfig(overridePath string) SelectorConfig {
	if overridePath != "" {
		if fileSel, err := LoadSelectors(overridePath); err == nil {
			slog.Info("Loaded selectors from external file", "path", overridePath)
			return fileSel
		} else {
			slog.Warn("Failed to load external selectors, falling back to embedded config", "path", overridePath, "error", err)
		}
	}

	data, err := embeddedSelectors.ReadFile("selectors.json")
	if err == nil {
		sel, parseErr := LoadSelectorsFromBytes(data)
		if parseErr == nil {
			slog.Info("Loaded selectors from embedded config.")
			return sel
		}
		slog.Warn("Embedded selectors failed to parse.", "error", parseErr)
	}

	slog.Info("Using hardcoded default selectors")
	return DefaultSelectors()
}
