/*
Package rois models the region-of-interest shapes attached to images and
decodes them from their wire form.  Each shape optionally binds to a single
(Z,C,T) plane; unbound axes apply to every plane.
*/
package rois

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/janelia-flyem/ezimage/ezimage"
	"github.com/janelia-flyem/ezimage/store"
)

// RGBA is an 8-bit-per-channel color.
type RGBA struct {
	R, G, B, A uint8
}

// Default colors when the server stores none: transparent fill, opaque
// yellow stroke.
var (
	DefaultFill   = RGBA{0, 0, 0, 0}
	DefaultStroke = RGBA{255, 255, 0, 255}
)

// PlaneBinding optionally pins a shape to one plane per axis.  Nil fields
// mean the shape applies across that whole axis.
type PlaneBinding struct {
	Z *int32
	C *int32
	T *int32
}

// Style carries the display attributes common to all shapes.
type Style struct {
	Fill        RGBA
	Stroke      RGBA
	StrokeWidth float64
}

// Point2d is one vertex of a polygon or polyline.
type Point2d struct {
	X, Y float64
}

// Shape is any ROI shape variant.
type Shape interface {
	Binding() PlaneBinding
	ShapeStyle() Style
}

type shapeBase struct {
	PlaneBinding
	Style
	Text string
}

func (s shapeBase) Binding() PlaneBinding { return s.PlaneBinding }
func (s shapeBase) ShapeStyle() Style     { return s.Style }

// Point is a single marker at (X, Y).
type Point struct {
	shapeBase
	X, Y float64
}

// Line is a segment from (X1, Y1) to (X2, Y2), optionally with arrow
// markers at either end.
type Line struct {
	shapeBase
	X1, Y1, X2, Y2         float64
	MarkerStart, MarkerEnd string
}

// Rectangle is an axis-aligned box anchored at its top-left corner.
type Rectangle struct {
	shapeBase
	X, Y          float64
	Width, Height float64
}

// Ellipse is centered at (X, Y) with per-axis radii.
type Ellipse struct {
	shapeBase
	X, Y             float64
	RadiusX, RadiusY float64
}

// Polygon is a closed vertex loop.
type Polygon struct {
	shapeBase
	Points []Point2d
}

// Polyline is an open vertex chain.
type Polyline struct {
	shapeBase
	Points []Point2d
}

// Label is text anchored at (X, Y).
type Label struct {
	shapeBase
	X, Y     float64
	FontSize float64
}

// intToRGBA unpacks a signed 32-bit packed RGBA color.  Negative values are
// the two's-complement reading of colors with a high R byte.  A nil or zero
// value falls back to the role's default.
func intToRGBA(packed *int32, isFill bool) RGBA {
	if packed == nil || *packed == 0 {
		if isFill {
			return DefaultFill
		}
		return DefaultStroke
	}
	v := int64(*packed)
	if v < 0 {
		v += 1 << 32
	}
	return RGBA{
		R: uint8(v >> 24),
		G: uint8(v >> 16),
		B: uint8(v >> 8),
		A: uint8(v),
	}
}

// parsePoints decodes a "x1,y1 x2,y2 ..." vertex string.
func parsePoints(s string) ([]Point2d, error) {
	fields := strings.Fields(s)
	points := make([]Point2d, 0, len(fields))
	for _, field := range fields {
		xy := strings.Split(field, ",")
		if len(xy) != 2 {
			return nil, fmt.Errorf("malformed vertex %q in points string: %w",
				field, ezimage.ErrInvalidArgument)
		}
		x, err := strconv.ParseFloat(xy[0], 64)
		if err != nil {
			return nil, fmt.Errorf("malformed vertex %q in points string: %w",
				field, ezimage.ErrInvalidArgument)
		}
		y, err := strconv.ParseFloat(xy[1], 64)
		if err != nil {
			return nil, fmt.Errorf("malformed vertex %q in points string: %w",
				field, ezimage.ErrInvalidArgument)
		}
		points = append(points, Point2d{x, y})
	}
	return points, nil
}

// FromWire converts a wire shape into its model variant.
func FromWire(w *store.WireShape) (Shape, error) {
	base := shapeBase{
		PlaneBinding: PlaneBinding{Z: w.TheZ, C: w.TheC, T: w.TheT},
		Style: Style{
			Fill:        intToRGBA(w.FillColor, true),
			Stroke:      intToRGBA(w.StrokeColor, false),
			StrokeWidth: 1,
		},
		Text: w.Text,
	}
	if w.StrokeWidth != nil {
		base.StrokeWidth = *w.StrokeWidth
	}
	switch w.Type {
	case "Point":
		return Point{base, w.X, w.Y}, nil
	case "Line":
		return Line{base, w.X1, w.Y1, w.X2, w.Y2, w.MarkerStart, w.MarkerEnd}, nil
	case "Rectangle":
		return Rectangle{base, w.X, w.Y, w.Width, w.Height}, nil
	case "Ellipse":
		return Ellipse{base, w.X, w.Y, w.RadiusX, w.RadiusY}, nil
	case "Polygon":
		points, err := parsePoints(w.Points)
		if err != nil {
			return nil, err
		}
		return Polygon{base, points}, nil
	case "Polyline":
		points, err := parsePoints(w.Points)
		if err != nil {
			return nil, err
		}
		return Polyline{base, points}, nil
	case "Label":
		return Label{base, w.X, w.Y, w.FontSize}, nil
	default:
		return nil, fmt.Errorf("shape type %q is not a valid shape type: %w",
			w.Type, ezimage.ErrInvalidArgument)
	}
}

// GetShape fetches one shape by id and converts it to its model form.
func GetShape(src store.ROIStore, shapeID int64) (Shape, error) {
	wire, err := src.Shape(shapeID)
	if err != nil {
		return nil, err
	}
	return FromWire(wire)
}
