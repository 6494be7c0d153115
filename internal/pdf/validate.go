package pdf

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/joseph-ayodele/hvac-extractor/internal/common"
)

// Validate checks that path names a readable, structurally valid PDF with at
// least one page and returns its page count. Every failure is an input error.
func Validate(path string) (int, error) {
	if strings.TrimSpace(path) == "" {
		return 0, common.InputError("pdf path is empty", nil)
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, common.InputError(fmt.Sprintf("pdf not found: %s", path), err)
		}
		return 0, common.InputError(fmt.Sprintf("cannot access pdf: %s", path), err)
	}
	if info.IsDir() {
		return 0, common.InputError(fmt.Sprintf("pdf path is a directory: %s", path), nil)
	}
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return 0, common.InputError(fmt.Sprintf("not a .pdf file: %s", path), nil)
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.ValidateFile(path, conf); err != nil {
		return 0, common.InputError(fmt.Sprintf("pdf is corrupt or unreadable: %s", path), err)
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, common.InputError(fmt.Sprintf("open pdf: %s", path), err)
	}
	defer f.Close()
	pages, err := api.PageCount(f, conf)
	if err != nil {
		return 0, common.InputError(fmt.Sprintf("count pages: %s", path), err)
	}
	if pages == 0 {
		return 0, common.InputError(fmt.Sprintf("pdf has no pages: %s", path), nil)
	}
	return pages, nil
}
