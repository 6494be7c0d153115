package jobs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/hvac-extractor/internal/common"
)

// uploadName reduces a client file name to its base and checks the extension.
func uploadName(name, ext string) (string, error) {
	base := filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	if base == "" || base == "." || base == "/" {
		return "", common.InputError("upload has no file name", nil)
	}
	if !strings.EqualFold(filepath.Ext(base), ext) {
		return "", common.InputError(fmt.Sprintf("%s: expected a %s file", base, ext), nil)
	}
	return base, nil
}

func saveUpload(path string, body io.Reader) error {
	if body == nil {
		return common.InputError("upload is empty", nil)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save upload: %w", err)
	}
	n, err := io.Copy(f, body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("save upload: %w", err)
	}
	if n == 0 {
		_ = os.Remove(path)
		return common.InputError("upload is empty", nil)
	}
	return nil
}

// writeOutput writes through a temporary file so downloads never observe a
// partial workbook.
func writeOutput(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	defer os.Remove(tmp.Name())
	if err := write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
