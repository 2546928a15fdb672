package mediastore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// copyFile writes a verbatim copy of source at dest, creating parent
// directories as needed. Used both for unmodified originals and as the
// fallback when a toolchain transformation fails.
func copyFile(source, dest string) error {
	in, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("open source %s: %w", source, err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create destination %s: %w", dest, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy to %s: %w", dest, err)
	}
	return out.Close()
}

// fallbackCopy recovers a failed transformation by copying the source
// verbatim. When the copy succeeds the outcome is Degraded with the toolchain
// failure as the reason; when even the copy fails, a ProcessError is returned
// and no outcome is usable.
func fallbackCopy(tool, source, dest string, cause error) (ProcessOutcome, error) {
	if err := copyFile(source, dest); err != nil {
		return ProcessOutcome{}, &ProcessError{Tool: tool, Source: source, Err: fmt.Errorf("%v; fallback copy failed: %w", cause, err)}
	}
	return Degraded(cause.Error()), nil
}
