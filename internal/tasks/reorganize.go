package tasks

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Reorganize moves every file directly under dir into a folder named
// after its extension ("no_ext" for none) and writes relocation_log.json
// mapping original names to their new relative locations.
func Reorganize(log *zap.Logger, dir string) (string, error) {
	if log == nil {
		log = zap.NewNop()
	}
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return "Tell me which directory to reorganize", nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", dir, err)
	}

	relocations := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
		if ext == "" {
			ext = "no_ext"
		}

		targetDir := filepath.Join(dir, ext)
		if err := os.MkdirAll(targetDir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create %s: %w", targetDir, err)
		}

		destination := filepath.Join(targetDir, name)
		if err := os.Rename(filepath.Join(dir, name), destination); err != nil {
			return "", fmt.Errorf("failed to move %s: %w", name, err)
		}
		relocations[name] = filepath.Join(ext, name)
	}

	logData, err := json.MarshalIndent(relocations, "", "  ")
	if err == nil {
		err = os.WriteFile(filepath.Join(dir, "relocation_log.json"), logData, 0o644)
	}
	if err != nil {
		// The move already happened; a lost log is worth a warning, not
		// a failed task.
		log.Warn("failed to save relocation log", zap.String("dir", dir), zap.Error(err))
	}

	log.Info("relocation completed",
		zap.String("dir", dir), zap.Int("files", len(relocations)))
	return "Relocation is completed", nil
}
