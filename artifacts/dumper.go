package artifacts

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// Dumper writes values to disk using the first matching kind of a registry.
type Dumper struct {
	fs       afero.Fs
	registry *Registry
}

// NewDumper returns a Dumper over fs. A nil registry means DefaultRegistry.
// Boosters and pretrained models save themselves through the os package,
// so dumping them fails with ErrNeedsOSFs unless fs is an *afero.OsFs.
func NewDumper(fs afero.Fs, registry *Registry) *Dumper {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Dumper{fs: fs, registry: registry}
}

// Dump writes value to dst with the serializer of the first tag in accepted
// whose type value satisfies. Nothing is left at dst when it fails.
func (d *Dumper) Dump(value any, dst string, accepted []TypeTag) error {
	for _, tag := range accepted {
		t, err := d.registry.ResolveType(tag)
		if err != nil {
			return err
		}
		if !matches(value, t) {
			continue
		}
		serialize, err := d.registry.SerializerFor(tag)
		if err != nil {
			return err
		}
		return d.write(serialize, value, dst)
	}
	return &UnsupportedTypeError{Type: fmt.Sprintf("%T", value), Tags: accepted}
}

// write runs serialize against a hidden sibling of dst and renames it into
// place once it succeeds.
func (d *Dumper) write(serialize Serializer, value any, dst string) error {
	exists, err := afero.Exists(d.fs, dst)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrDestinationExists, dst)
	}

	tmp := filepath.Join(filepath.Dir(dst), ".tmp-"+uuid.NewString()+"-"+filepath.Base(dst))
	if err := serialize(d.fs, value, tmp); err != nil {
		if rmErr := d.fs.RemoveAll(tmp); rmErr != nil {
			logs.Warnf("failed to remove partial output %s: %v", tmp, rmErr)
		}
		return err
	}
	if err := d.fs.Rename(tmp, dst); err != nil {
		_ = d.fs.RemoveAll(tmp)
		return fmt.Errorf("move %s into place: %w", dst, err)
	}
	return nil
}
