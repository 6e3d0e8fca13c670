package packer

import "sort"

// Page is one packed texture sheet.
type Page struct {
	Width      int         `json:"width"`
	Height     int         `json:"height"`
	Placements []Placement `json:"placements"`
}

// PagePlacement locates one rectangle in a PackResult.
type PagePlacement struct {
	PageIndex int
	Placement Placement
}

// PackResult is the only externally visible packing artifact: the ordered
// pages plus an id lookup. Every accepted rectangle appears in exactly one
// page and exactly once in the index. Rectangles that could not fit even
// in a fresh page are absent from the index; callers that care must check
// for missing ids.
type PackResult struct {
	Pages []Page
	Index map[string]PagePlacement
}

// Skipped returns the ids from rects that are absent from the result.
func (r *PackResult) Skipped(rects []Rect) []string {
	var skipped []string
	for _, rect := range rects {
		if _, ok := r.Index[rect.ID]; !ok {
			skipped = append(skipped, rect.ID)
		}
	}
	return skipped
}

// PackAll packs rectangles into as few pages as possible. Rectangles are
// sorted descending by their longer side (ties keep input order), then
// each is offered to existing bins in creation order before a new bin is
// created. A rectangle whose padded dimensions exceed the page size is
// skipped.
func PackAll(rects []Rect, pageWidth, pageHeight, padding int) *PackResult {
	sorted := make([]Rect, len(rects))
	copy(sorted, rects)
	sort.SliceStable(sorted, func(i, j int) bool {
		return maxSide(sorted[i]) > maxSide(sorted[j])
	})

	var bins []*Bin
	result := &PackResult{Index: make(map[string]PagePlacement)}

	for _, rect := range sorted {
		if rect.Width+padding > pageWidth || rect.Height+padding > pageHeight {
			continue
		}

		placed := false
		for i, bin := range bins {
			if p := bin.Insert(rect.Width, rect.Height, rect.ID); p != nil {
				result.Index[rect.ID] = PagePlacement{PageIndex: i, Placement: *p}
				placed = true
				break
			}
		}
		if placed {
			continue
		}

		bin := NewBin(pageWidth, pageHeight, padding)
		bins = append(bins, bin)
		if p := bin.Insert(rect.Width, rect.Height, rect.ID); p != nil {
			result.Index[rect.ID] = PagePlacement{PageIndex: len(bins) - 1, Placement: *p}
		}
	}

	result.Pages = make([]Page, len(bins))
	for i, bin := range bins {
		result.Pages[i] = Page{
			Width:      pageWidth,
			Height:     pageHeight,
			Placements: bin.Placements(),
		}
	}
	return result
}

func maxSide(r Rect) int {
	if r.Width > r.Height {
		return r.Width
	}
	return r.Height
}
