package coords

import (
	"github.com/wudi/pdfmark/failure"
)

// ScaleFactors returns the overlay-to-document scale factors for one page.
func ScaleFactors(page, overlay Size) (sx, sy float64, err error) {
	if overlay.IsZero() {
		return 0, 0, failure.Errorf(failure.MissingOverlaySize, "coords", "overlay size %gx%g was never measured", overlay.W, overlay.H)
	}
	if page.IsZero() {
		return 0, 0, failure.Errorf(failure.InvalidInput, "coords", "page size %gx%g", page.W, page.H)
	}
	return page.W / overlay.W, page.H / overlay.H, nil
}

// ToDocumentRect maps an overlay rectangle (top-left origin, overlay pixels)
// onto the page (bottom-left origin, page units). The rectangle's bottom
// overlay edge becomes its document-space y.
func ToDocumentRect(r Rect, page, overlay Size) (Rect, error) {
	sx, sy, err := ScaleFactors(page, overlay)
	if err != nil {
		return Rect{}, err
	}
	return Rect{
		X: r.X * sx,
		Y: page.H - (r.Y+r.H)*sy,
		W: r.W * sx,
		H: r.H * sy,
	}, nil
}

// ToDocumentPoint maps a single overlay point onto the page.
func ToDocumentPoint(p Point, page, overlay Size) (Point, error) {
	sx, sy, err := ScaleFactors(page, overlay)
	if err != nil {
		return Point{}, err
	}
	return Point{X: p.X * sx, Y: page.H - p.Y*sy}, nil
}

// ToDocumentPoints maps every point of a path; it fails as a whole.
func ToDocumentPoints(pts []Point, page, overlay Size) ([]Point, error) {
	out := make([]Point, len(pts))
	for i, p := range pts {
		q, err := ToDocumentPoint(p, page, overlay)
		if err != nil {
			return nil, err
		}
		out[i] = q
	}
	return out, nil
}

// ToOverlayRect is the inverse of ToDocumentRect.
func ToOverlayRect(r Rect, page, overlay Size) (Rect, error) {
	sx, sy, err := ScaleFactors(page, overlay)
	if err != nil {
		return Rect{}, err
	}
	return Rect{
		X: r.X / sx,
		Y: (page.H-r.Y)/sy - r.H/sy,
		W: r.W / sx,
		H: r.H / sy,
	}, nil
}

// ToOverlayPoint is the inverse of ToDocumentPoint.
func ToOverlayPoint(p Point, page, overlay Size) (Point, error) {
	sx, sy, err := ScaleFactors(page, overlay)
	if err != nil {
		return Point{}, err
	}
	return Point{X: p.X / sx, Y: (page.H - p.Y) / sy}, nil
}
