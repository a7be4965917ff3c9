package sink

import (
	"bufio"
	"context"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/Sternrassler/catalog-audit/pkg/audit"
)

// DefaultPath is the output file written when no path is configured.
const DefaultPath = "invalid-product-ids.txt"

// FileSink writes the invalid product ids one per line.
//
// The file is replaced atomically: content goes to a temporary file in the
// same directory which is then renamed over Path.
type FileSink struct {
	Path string
}

// NewFileSink creates a file sink, falling back to DefaultPath.
func NewFileSink(path string) *FileSink {
	if path == "" {
		path = DefaultPath
	}
	return &FileSink{Path: path}
}

func (s *FileSink) Write(_ context.Context, report *audit.Report) error {
	return observe("file", s.write(report))
}

func (s *FileSink) write(report *audit.Report) error {
	dir := filepath.Dir(s.Path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.Path)+".*")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	defer os.Remove(tmp.Name()) // no-op once renamed

	w := bufio.NewWriter(tmp)
	for _, id := range report.InvalidProductIDs {
		w.WriteString(string(id))
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "write %s", tmp.Name())
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return errors.Wrap(err, "chmod temp file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "close %s", tmp.Name())
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return errors.Wrapf(err, "rename to %s", s.Path)
	}
	return nil
}
