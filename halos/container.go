package halos

import (
	"fmt"

	"github.com/arkordt/scida/internal/chunked"
)

// Container is a named collection of same-length lazy fields for one
// particle species. Field insertion order is preserved.
type Container struct {
	species string
	names   []string
	fields  map[string]chunked.Field
}

// NewContainer creates an empty container for one species.
func NewContainer(species string) *Container {
	return &Container{species: species, fields: make(map[string]chunked.Field)}
}

// Species returns the particle species this container holds.
func (c *Container) Species() string { return c.species }

// SetField adds or replaces a field. All fields of one container share a
// particle axis, so a field whose length or chunking disagrees with the
// existing ones is rejected.
func (c *Container) SetField(name string, f chunked.Field) error {
	if len(c.names) > 0 {
		if f.Len() != c.Len() || !f.Chunking().Equal(c.Chunking()) {
			return fmt.Errorf("%w: field %q (length %d) against container %q (length %d)",
				ErrFieldMismatch, name, f.Len(), c.species, c.Len())
		}
	}
	if _, ok := c.fields[name]; !ok {
		c.names = append(c.names, name)
	}
	c.fields[name] = f
	return nil
}

// Field returns a field by name.
func (c *Container) Field(name string) (chunked.Field, bool) {
	f, ok := c.fields[name]
	return f, ok
}

// FieldNames returns the field names in insertion order.
func (c *Container) FieldNames() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Len returns the particle count, or 0 for a container with no fields.
func (c *Container) Len() int64 {
	if len(c.names) == 0 {
		return 0
	}
	return c.fields[c.names[0]].Len()
}

// Chunking returns the shared storage partition of the container's fields.
func (c *Container) Chunking() chunked.Chunking {
	if len(c.names) == 0 {
		return chunked.SingleChunk(0)
	}
	return c.fields[c.names[0]].Chunking()
}

// section returns a container mirroring c, every field lazily restricted to
// the particle range [lo, hi).
func (c *Container) section(lo, hi int64) (*Container, error) {
	out := NewContainer(c.species)
	for _, name := range c.names {
		f, err := c.fields[name].Section(lo, hi)
		if err != nil {
			return nil, fmt.Errorf("restricting field %q: %w", name, err)
		}
		if err := out.SetField(name, f); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ContainerSet maps species names to their particle containers.
type ContainerSet map[string]*Container
