// Package geometry holds page-relative layout primitives.
package geometry

import "math"

// Box is an axis-aligned rectangle on a single page.
// Coordinates are page-relative with the origin at the top-left corner.
type Box struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Page   int     `json:"page"`
}

// NewBox creates a box on the given page.
func NewBox(left, top, width, height float64, page int) Box {
	return Box{Left: left, Top: top, Width: width, Height: height, Page: page}
}

// Right returns the right edge.
func (b Box) Right() float64 { return b.Left + b.Width }

// Bottom returns the bottom edge.
func (b Box) Bottom() float64 { return b.Top + b.Height }

// Area returns width * height.
func (b Box) Area() float64 { return b.Width * b.Height }

// Contains reports whether the point lies inside the box (edges inclusive).
func (b Box) Contains(x, y float64) bool {
	return x >= b.Left && x <= b.Right() && y >= b.Top && y <= b.Bottom()
}

// Intersects reports whether two boxes on the same page overlap.
// Boxes that only touch at an edge intersect.
func (b Box) Intersects(other Box) bool {
	if b.Page != other.Page {
		return false
	}
	return !(b.Right() < other.Left ||
		b.Left > other.Right() ||
		b.Bottom() < other.Top ||
		b.Top > other.Bottom())
}

// Union returns the smallest box covering both. The page of b is kept.
func (b Box) Union(other Box) Box {
	left := math.Min(b.Left, other.Left)
	top := math.Min(b.Top, other.Top)
	right := math.Max(b.Right(), other.Right())
	bottom := math.Max(b.Bottom(), other.Bottom())
	return Box{Left: left, Top: top, Width: right - left, Height: bottom - top, Page: b.Page}
}

// Enclosing returns the union of all boxes. ok is false for an empty input.
func Enclosing(boxes []Box) (out Box, ok bool) {
	for i, b := range boxes {
		if i == 0 {
			out = b
			continue
		}
		out = out.Union(b)
	}
	return out, len(boxes) > 0
}
