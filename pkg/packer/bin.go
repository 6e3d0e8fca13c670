// Package packer places sprite rectangles into fixed-size texture pages
// using the MaxRects Best Short-Side Fit heuristic.
package packer

// Rect is one rectangle to be packed, identified by an opaque id.
type Rect struct {
	Width  int
	Height int
	ID     string
}

// Placement is a rectangle with its assigned origin inside a page.
// Width and Height are the original, unpadded dimensions.
type Placement struct {
	ID     string `json:"id"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// freeRegion is a candidate empty area inside a bin.
type freeRegion struct {
	x, y, w, h int
}

// Bin is one fixed-size packing target. It is append-only: placed
// rectangles are never evicted, and a bin is never resized.
type Bin struct {
	width      int
	height     int
	padding    int
	placements []Placement
	free       []freeRegion
}

// NewBin creates an empty bin with a single free region covering the
// whole area. Padding is the inter-sprite margin added to each dimension
// before fitting.
func NewBin(width, height, padding int) *Bin {
	return &Bin{
		width:   width,
		height:  height,
		padding: padding,
		free:    []freeRegion{{x: 0, y: 0, w: width, h: height}},
	}
}

// Placements returns the rectangles placed so far, in placement order.
func (b *Bin) Placements() []Placement {
	return b.placements
}

// Insert tries to place a rectangle into the bin. It returns nil when no
// free region can hold the padded rectangle. Zero or negative dimensions
// are a caller error.
func (b *Bin) Insert(width, height int, id string) *Placement {
	paddedW := width + b.padding
	paddedH := height + b.padding

	best := -1
	bestShort, bestLong := 0, 0
	for i, r := range b.free {
		if paddedW > r.w || paddedH > r.h {
			continue
		}
		leftoverW := r.w - paddedW
		leftoverH := r.h - paddedH
		short, long := leftoverW, leftoverH
		if short > long {
			short, long = long, short
		}
		if best < 0 || short < bestShort || (short == bestShort && long < bestLong) {
			best = i
			bestShort, bestLong = short, long
		}
	}
	if best < 0 {
		return nil
	}

	used := freeRegion{x: b.free[best].x, y: b.free[best].y, w: paddedW, h: paddedH}

	// Every free region overlapping the used rectangle is re-sliced, not
	// just the chosen one: a placement can invalidate parts of regions it
	// was not drawn from.
	var next []freeRegion
	for _, r := range b.free {
		if !overlaps(r, used) {
			next = append(next, r)
			continue
		}
		next = append(next, slices(r, used)...)
	}
	b.free = prune(next)

	placement := Placement{ID: id, X: used.x, Y: used.y, Width: width, Height: height}
	b.placements = append(b.placements, placement)
	return &placement
}

// FreeRegions returns a copy of the current free-region list.
func (b *Bin) FreeRegions() [][4]int {
	out := make([][4]int, len(b.free))
	for i, r := range b.free {
		out[i] = [4]int{r.x, r.y, r.w, r.h}
	}
	return out
}

func overlaps(a, b freeRegion) bool {
	return a.x < b.x+b.w && b.x < a.x+a.w &&
		a.y < b.y+b.h && b.y < a.y+a.h
}

// slices returns the left, right, top, and bottom leftover slices of r
// relative to the used rectangle, keeping only those with positive area.
func slices(r, used freeRegion) []freeRegion {
	var out []freeRegion

	// Left slice
	if used.x > r.x {
		out = append(out, freeRegion{x: r.x, y: r.y, w: used.x - r.x, h: r.h})
	}
	// Right slice
	if used.x+used.w < r.x+r.w {
		out = append(out, freeRegion{x: used.x + used.w, y: r.y, w: r.x + r.w - (used.x + used.w), h: r.h})
	}
	// Top slice
	if used.y > r.y {
		out = append(out, freeRegion{x: r.x, y: r.y, w: r.w, h: used.y - r.y})
	}
	// Bottom slice
	if used.y+used.h < r.y+r.h {
		out = append(out, freeRegion{x: r.x, y: used.y + used.h, w: r.w, h: r.y + r.h - (used.y + used.h)})
	}
	return out
}

// prune drops any region fully contained in another. Containment keeps
// the free list bounded; adjacent regions are deliberately not merged.
func prune(regions []freeRegion) []freeRegion {
	var out []freeRegion
	for i, r := range regions {
		contained := false
		for j, other := range regions {
			if i == j {
				continue
			}
			if contains(other, r) {
				// Identical regions keep only the first occurrence.
				if !(contains(r, other) && i < j) {
					contained = true
					break
				}
			}
		}
		if !contained {
			out = append(out, r)
		}
	}
	return out
}

// contains reports whether outer fully contains inner (edges may touch).
func contains(outer, inner freeRegion) bool {
	return inner.x >= outer.x && inner.y >= outer.y &&
		inner.x+inner.w <= outer.x+outer.w &&
		inner.y+inner.h <= outer.y+outer.h
}
