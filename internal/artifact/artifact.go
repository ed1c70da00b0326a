// Package artifact names the two build variants and locates their merged
// relocatable objects on disk.
//
// There is no global artifact store. Callers construct a Descriptor that maps
// each optimization tag to an artifact path and pass it to every build and
// analysis operation.
package artifact

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Tag identifies one of the two build configurations.
type Tag string

const (
	// Unoptimized is the -O0 build.
	Unoptimized Tag = "O0"
	// Optimized is the -O2 build.
	Optimized Tag = "O2"
)

// Tags lists every tag in build order.
var Tags = []Tag{Unoptimized, Optimized}

// ParseTag accepts the short level names ("O0", "O2") and the long names
// ("unoptimized", "optimized"), case-insensitively.
func ParseTag(s string) (Tag, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "o0", "unoptimized":
		return Unoptimized, nil
	case "o2", "optimized":
		return Optimized, nil
	}
	return "", fmt.Errorf("invalid optimization level %q: must be one of O0, O2", s)
}

// Valid reports whether t is one of the two known tags.
func (t Tag) Valid() bool {
	return t == Unoptimized || t == Optimized
}

// Name returns the long name of the tag.
func (t Tag) Name() string {
	switch t {
	case Unoptimized:
		return "unoptimized"
	case Optimized:
		return "optimized"
	}
	return string(t)
}

// Variant is a built artifact for one tag.
type Variant struct {
	Tag  Tag    `json:"level"`
	Path string `json:"file"`
	Size int64  `json:"size"`
}

// MissingError reports that the artifact for a tag does not exist.
type MissingError struct {
	Tag  Tag
	Path string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("object file not found for %s: %s (build first)", e.Tag, e.Path)
}

// IsMissing reports whether err is, or wraps, a *MissingError.
func IsMissing(err error) bool {
	var me *MissingError
	return errors.As(err, &me)
}

// Descriptor maps each tag to the path of its artifact.
type Descriptor struct {
	Root  string
	paths map[Tag]string
}

// NewDescriptor places artifacts in root as <baseName>_O0.o and <baseName>_O2.o.
func NewDescriptor(root, baseName string) Descriptor {
	d := Descriptor{Root: root, paths: make(map[Tag]string, len(Tags))}
	for _, tag := range Tags {
		d.paths[tag] = filepath.Join(root, fmt.Sprintf("%s_%s.o", baseName, tag))
	}
	return d
}

// Abs returns d with its root and artifact paths made absolute against the
// working directory.
func (d Descriptor) Abs() (Descriptor, error) {
	root, err := filepath.Abs(d.Root)
	if err != nil {
		return Descriptor{}, errors.Wrapf(err, "resolve artifact directory %s", d.Root)
	}
	abs := Descriptor{Root: root, paths: make(map[Tag]string, len(d.paths))}
	for tag, p := range d.paths {
		abs.paths[tag] = filepath.Join(root, filepath.Base(p))
	}
	return abs, nil
}

// Path returns where the artifact for tag lives, whether or not it exists.
func (d Descriptor) Path(tag Tag) string {
	return d.paths[tag]
}

// Lookup returns the variant for tag if its artifact exists.
func (d Descriptor) Lookup(tag Tag) (Variant, error) {
	if !tag.Valid() {
		return Variant{}, fmt.Errorf("invalid optimization level %q", tag)
	}
	path := d.Path(tag)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Variant{}, &MissingError{Tag: tag, Path: path}
		}
		return Variant{}, errors.Wrapf(err, "stat artifact %s", path)
	}
	if info.IsDir() {
		return Variant{}, &MissingError{Tag: tag, Path: path}
	}
	return Variant{Tag: tag, Path: path, Size: info.Size()}, nil
}

// Snapshot is a private, stable copy of an artifact taken for the duration of
// one analysis request. A rebuild that replaces the published artifact does
// not affect a snapshot already taken.
type Snapshot struct {
	Variant Variant
	dir     string
}

// Snapshot links (or copies, across filesystems) the artifact for tag into a
// fresh work area under the descriptor root. Close releases the work area.
func (d Descriptor) Snapshot(tag Tag) (*Snapshot, error) {
	v, err := d.Lookup(tag)
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp(d.Root, ".analyze-")
	if err != nil {
		return nil, errors.Wrap(err, "create analysis work area")
	}
	target := filepath.Join(dir, filepath.Base(v.Path))

	if err := os.Link(v.Path, target); err != nil {
		if os.IsNotExist(err) {
			os.RemoveAll(dir)
			return nil, &MissingError{Tag: tag, Path: v.Path}
		}
		if err := copyFile(v.Path, target); err != nil {
			os.RemoveAll(dir)
			if os.IsNotExist(errors.Cause(err)) {
				return nil, &MissingError{Tag: tag, Path: v.Path}
			}
			return nil, errors.Wrap(err, "snapshot artifact")
		}
	}

	info, err := os.Stat(target)
	if err != nil {
		os.RemoveAll(dir)
		return nil, errors.Wrap(err, "stat snapshot")
	}
	return &Snapshot{
		Variant: Variant{Tag: tag, Path: target, Size: info.Size()},
		dir:     dir,
	}, nil
}

// Close removes the snapshot's work area.
func (s *Snapshot) Close() error {
	if s == nil || s.dir == "" {
		return nil
	}
	return os.RemoveAll(s.dir)
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer multierr.AppendInvoke(&err, multierr.Close(out))

	if _, err := io.Copy(out, in); err != nil {
		return errors.Wrap(err, "copy artifact")
	}
	return nil
}
