// Package assets resolves card images from a local directory.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/PabloGalante/arcana/internal/domain"
)

var extensions = []string{".png", ".jpg", ".jpeg", ".webp"}

// Directory looks up "<image>_reversed.<ext>" for reversed cards, then
// "<image>.<ext>". An empty root disables images entirely.
type Directory struct {
	root string
}

func NewDirectory(root string) (*Directory, error) {
	if root == "" {
		return &Directory{}, nil
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: assets dir: %w", domain.ErrConfiguration, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: assets dir %q is not a directory", domain.ErrConfiguration, root)
	}
	return &Directory{root: root}, nil
}

func (d *Directory) Lookup(ctx context.Context, card domain.Card, orientation domain.Orientation) (string, bool, error) {
	if d.root == "" {
		return "", false, nil
	}
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	base := card.Image
	if base == "" {
		base = slug(card.Name)
	}

	var candidates []string
	if orientation == domain.Reversed {
		candidates = append(candidates, base+"_reversed")
	}
	candidates = append(candidates, base)

	for _, name := range candidates {
		for _, ext := range extensions {
			path := filepath.Join(d.root, name+ext)
			info, err := os.Stat(path)
			switch {
			case err == nil && !info.IsDir():
				return path, true, nil
			case err != nil && !errors.Is(err, fs.ErrNotExist):
				return "", false, fmt.Errorf("stat %s: %w", path, err)
			}
		}
	}
	return "", false, nil
}

func slug(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}
