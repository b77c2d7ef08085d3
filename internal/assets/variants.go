package assets

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
)

var Extensions = []string{".png", ".jpg", ".jpeg", ".webp"}

// platform suffix -> platform name; the bare id is the instagram variant
var suffixes = []struct {
	suffix   string
	platform string
}{
	{"_facebook", "facebook"},
	{"_linkedin", "linkedin"},
}

const basePlatform = "instagram"

type Variant struct {
	PostID   string
	Platform string
	Folder   Folder
	Name     string
	Path     string
}

// IsImage reports whether name carries one of the known image extensions.
func IsImage(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// SplitVariant splits a file stem into base post id and platform.
func SplitVariant(stem string) (string, string) {
	for _, s := range suffixes {
		if strings.HasSuffix(stem, s.suffix) && len(stem) > len(s.suffix) {
			return strings.TrimSuffix(stem, s.suffix), s.platform
		}
	}
	return stem, basePlatform
}

// BaseID strips a platform suffix from an id passed by a caller.
func BaseID(id string) string {
	base, _ := SplitVariant(id)
	return base
}

// VariantName builds the file name for a platform variant.
func VariantName(baseID, platform, ext string) string {
	for _, s := range suffixes {
		if s.platform == platform {
			return baseID + s.suffix + ext
		}
	}
	return baseID + ext
}

func parse(name string) (string, string, bool) {
	if !IsImage(name) {
		return "", "", false
	}
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	base, platform := SplitVariant(stem)
	return base, platform, true
}

func (l *Layout) list(client string, f Folder) ([]Variant, error) {
	dir := l.Dir(client, f)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []Variant
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		base, platform, ok := parse(e.Name())
		if !ok {
			continue
		}
		out = append(out, Variant{
			PostID:   base,
			Platform: platform,
			Folder:   f,
			Name:     e.Name(),
			Path:     filepath.Join(dir, e.Name()),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Scan groups every variant of client by post id.
func (l *Layout) Scan(client string) (map[string][]Variant, error) {
	byID := map[string][]Variant{}
	for _, f := range Folders {
		vs, err := l.list(client, f)
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", f, err)
		}
		for _, v := range vs {
			byID[v.PostID] = append(byID[v.PostID], v)
		}
	}
	return byID, nil
}

// FindVariants returns the variants of baseID in folder f.
func (l *Layout) FindVariants(client string, f Folder, baseID string) []Variant {
	vs, err := l.list(client, f)
	if err != nil {
		slog.Info(err.Error())
		return nil
	}
	var out []Variant
	for _, v := range vs {
		if v.PostID == baseID {
			out = append(out, v)
		}
	}
	return out
}

func (l *Layout) AnyVariantsExist(client string, f Folder, baseID string) bool {
	return len(l.FindVariants(client, f, baseID)) > 0
}

// FolderOf returns the most advanced folder holding a variant of baseID.
func (l *Layout) FolderOf(client, baseID string) (Folder, bool) {
	for _, f := range Folders {
		if l.AnyVariantsExist(client, f, baseID) {
			return f, true
		}
	}
	return "", false
}

// MoveVariants moves every variant of baseID from src to dst, creating dst
// when needed. It returns the number of files moved.
func (l *Layout) MoveVariants(client, baseID string, src, dst Folder) (int, error) {
	variants := l.FindVariants(client, src, baseID)
	if len(variants) == 0 {
		return 0, nil
	}
	dstDir := l.Dir(client, dst)
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return 0, fmt.Errorf("creating %s: %w", dstDir, err)
	}
	moved := 0
	for _, v := range variants {
		if err := moveFile(v.Path, filepath.Join(dstDir, v.Name)); err != nil {
			return moved, fmt.Errorf("moving %s: %w", v.Name, err)
		}
		moved++
	}
	return moved, nil
}

// CopyInto copies srcPath into folder f under name.
func (l *Layout) CopyInto(client string, f Folder, srcPath, name string) error {
	dstDir := l.Dir(client, f)
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return err
	}
	return copyFile(srcPath, filepath.Join(dstDir, name))
}

func moveFile(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return err
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
