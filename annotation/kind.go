package annotation

import "fmt"

// Kind tags the variant of an Annotation.
type Kind int

const (
	KindImage Kind = iota + 1
	KindText
	KindSignature
	KindDraw
	KindHighlight
	KindShape
	KindComment
	KindStamp
)

// Kinds lists every kind in a stable order.
var Kinds = []Kind{KindImage, KindText, KindSignature, KindDraw, KindHighlight, KindShape, KindComment, KindStamp}

var kindNames = map[Kind]string{
	KindImage:     "image",
	KindText:      "text",
	KindSignature: "signature",
	KindDraw:      "draw",
	KindHighlight: "highlight",
	KindShape:     "shape",
	KindComment:   "comment",
	KindStamp:     "stamp",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown annotation kind %q", s)
}

// ShapeType selects the geometry of a Shape annotation.
type ShapeType string

const (
	ShapeRect    ShapeType = "rect"
	ShapeEllipse ShapeType = "ellipse"
	ShapeLine    ShapeType = "line"
	ShapeArrow   ShapeType = "arrow"
	ShapePolygon ShapeType = "polygon"
	ShapeCloud   ShapeType = "cloud"
)

// IsBox reports whether the shape is described by its bounding box alone.
func (t ShapeType) IsBox() bool { return t == ShapeRect || t == ShapeEllipse }

// IsMultiClick reports whether the shape is built from clicked vertices.
func (t ShapeType) IsMultiClick() bool { return t == ShapePolygon || t == ShapeCloud }

func (t ShapeType) Valid() bool {
	switch t {
	case ShapeRect, ShapeEllipse, ShapeLine, ShapeArrow, ShapePolygon, ShapeCloud:
		return true
	}
	return false
}
