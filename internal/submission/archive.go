package submission

import (
	"archive/tar"
	"compress/bzip2"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsafeArchive reports an archive entry that would land outside the
// extraction directory.
var ErrUnsafeArchive = errors.New("unsafe archive entry")

// ExtractArchive unpacks the regular files of a .tar.bz2 archive into dest
// and returns their paths.
func ExtractArchive(ctx context.Context, archive, dest string) ([]string, error) {
	f, err := os.Open(archive)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if err := os.MkdirAll(dest, 0o750); err != nil {
		return nil, err
	}
	absDest, err := filepath.Abs(dest)
	if err != nil {
		return nil, err
	}

	var extracted []string
	tr := tar.NewReader(bzip2.NewReader(f))
	for {
		if err := ctx.Err(); err != nil {
			return extracted, err
		}
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return extracted, fmt.Errorf("reading %s: %w", archive, err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		target := filepath.Join(absDest, filepath.FromSlash(hdr.Name))
		if target != absDest && !strings.HasPrefix(target, absDest+string(filepath.Separator)) {
			return extracted, fmt.Errorf("%w: %s", ErrUnsafeArchive, hdr.Name)
		}
		if err := writeEntry(target, tr); err != nil {
			return extracted, err
		}
		extracted = append(extracted, target)
	}
	return extracted, nil
}

func writeEntry(target string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return err
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil { // #nosec G110 -- trusted dataset archives
		_ = out.Close()
		return fmt.Errorf("extracting %s: %w", target, err)
	}
	return out.Close()
}
