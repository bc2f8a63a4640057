package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	fileMu     sync.Mutex
	fileWriter *lumberjack.Logger
)

// ConfigureFileOutput switches logging between stderr and a rotated log file.
// Passing an empty path restores stderr output and closes any open file.
func ConfigureFileOutput(path string) error {
	fileMu.Lock()
	defer fileMu.Unlock()

	if path == "" {
		if fileWriter != nil {
			_ = fileWriter.Close()
			fileWriter = nil
		}
		SetOutput(os.Stderr)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("logging: create log directory: %w", err)
	}
	if fileWriter != nil {
		_ = fileWriter.Close()
	}
	fileWriter = &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10,
		MaxBackups: 3,
	}
	SetOutput(fileWriter)
	RegisterExitHandler(closeFileOutput)
	return nil
}

func closeFileOutput() {
	fileMu.Lock()
	defer fileMu.Unlock()
	if fileWriter != nil {
		_ = fileWriter.Close()
		fileWriter = nil
	}
}

// MaskSecret truncates a credential for safe inclusion in log output.
func MaskSecret(secret string) string {
	switch {
	case len(secret) > 8:
		return secret[:4] + "..." + secret[len(secret)-4:]
	case len(secret) > 4:
		return secret[:2] + "..." + secret[len(secret)-2:]
	case len(secret) > 2:
		return secret[:1] + "..." + secret[len(secret)-1:]
	}
	return secret
}
