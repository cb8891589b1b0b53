// Package region defines the geometry collaborator interface consumed when
// emitting region commands, plus the two primitive shapes the generator
// ships with. Geometry generation itself (e.g. rasterized particle
// placement) lives outside this repository; anything satisfying Region can
// be described in a script.
package region

import (
	"fmt"

	"github.com/vk/mdscript/internal/record"
)

// Region is a bounded volume that can report membership and its axis-aligned
// bounding box.
type Region interface {
	// Contains reports whether the point lies inside the region.
	Contains(x, y, z float64) bool
	// Bounds returns the axis-aligned bounding box as (min, max) corners.
	Bounds() (min, max [3]float64)
}

// Block is an axis-aligned box.
type Block struct {
	Min [3]float64
	Max [3]float64
}

func (b Block) Contains(x, y, z float64) bool {
	return x >= b.Min[0] && x <= b.Max[0] &&
		y >= b.Min[1] && y <= b.Max[1] &&
		z >= b.Min[2] && z <= b.Max[2]
}

func (b Block) Bounds() (min, max [3]float64) {
	return b.Min, b.Max
}

// Sphere is a ball around a center point.
type Sphere struct {
	Center [3]float64
	Radius float64
}

func (s Sphere) Contains(x, y, z float64) bool {
	dx := x - s.Center[0]
	dy := y - s.Center[1]
	dz := z - s.Center[2]
	return dx*dx+dy*dy+dz*dz <= s.Radius*s.Radius
}

func (s Sphere) Bounds() (min, max [3]float64) {
	for i, c := range s.Center {
		min[i] = c - s.Radius
		max[i] = c + s.Radius
	}
	return min, max
}

// Command renders the solver's region command for a named region. Shapes
// the solver has no dedicated style for fall back to their bounding block.
func Command(name string, r Region) string {
	switch shape := r.(type) {
	case Block:
		return fmt.Sprintf("region %s block %g %g %g %g %g %g", name,
			shape.Min[0], shape.Max[0], shape.Min[1], shape.Max[1], shape.Min[2], shape.Max[2])
	case Sphere:
		return fmt.Sprintf("region %s sphere %g %g %g %g", name,
			shape.Center[0], shape.Center[1], shape.Center[2], shape.Radius)
	}
	min, max := r.Bounds()
	return fmt.Sprintf("region %s block %g %g %g %g %g %g", name,
		min[0], max[0], min[1], max[1], min[2], max[2])
}

// AsRecord exposes a region's geometry as a parameter record so script
// sections can reference its fields through a binding.
func AsRecord(r Region) *record.Record {
	min, max := r.Bounds()
	rec := record.New()
	// Sets on a fresh record cannot fail; errors ignored accordingly.
	_ = rec.Set("xlo", record.Number(min[0]))
	_ = rec.Set("xhi", record.Number(max[0]))
	_ = rec.Set("ylo", record.Number(min[1]))
	_ = rec.Set("yhi", record.Number(max[1]))
	_ = rec.Set("zlo", record.Number(min[2]))
	_ = rec.Set("zhi", record.Number(max[2]))
	return rec
}
