package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Disk writes uploads below dir and serves them from publicPath.
type Disk struct {
	dir        string
	publicPath string
}

// NewDisk creates dir if needed.
func NewDisk(dir, publicPath string) (*Disk, error) {
	if dir == "" {
		return nil, fmt.Errorf("upload dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %q: %w", dir, err)
	}
	return &Disk{dir: dir, publicPath: strings.TrimRight(publicPath, "/")}, nil
}

// Dir returns the directory files are written to.
func (d *Disk) Dir() string {
	return d.dir
}

func (d *Disk) Save(ctx context.Context, objectName, _ string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := filepath.Base(objectName)
	full := filepath.Join(d.dir, name)

	f, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %q: %w", full, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(full)
		return "", fmt.Errorf("write %q: %w", full, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %q: %w", full, err)
	}
	return d.publicPath + "/" + name, nil
}

func (d *Disk) Delete(_ context.Context, url string) error {
	if !strings.HasPrefix(url, d.publicPath+"/") {
		return nil
	}
	name := filepath.Base(strings.TrimPrefix(url, d.publicPath+"/"))
	err := os.Remove(filepath.Join(d.dir, name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
