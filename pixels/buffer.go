package pixels

import (
	"fmt"

	"github.com/janelia-flyem/ezimage/ezimage"
)

// Buffer is a dense 5-dimensional pixel array in the fixed canonical
// (T,Z,Y,X,C) order, backed by a flat little-endian byte slice typed by the
// image's pixel type.  It is allocated zero-filled once per extraction call
// and fully populated before being exposed, so trimmed padding regions read
// back as zero without a separate fill pass.
type Buffer struct {
	pixelType ezimage.PixelType
	dims      [5]int32 // canonical T,Z,Y,X,C
	stride    [5]int64 // byte strides per canonical axis
	data      []byte
}

// NewBuffer allocates a canonical buffer for an XYZCT-ordered request size.
func NewBuffer(t ezimage.PixelType, lengths ezimage.Lengths5d) *Buffer {
	buf := &Buffer{
		pixelType: t,
		dims: [5]int32{
			lengths[ezimage.AxisT],
			lengths[ezimage.AxisZ],
			lengths[ezimage.AxisY],
			lengths[ezimage.AxisX],
			lengths[ezimage.AxisC],
		},
	}
	esize := int64(ezimage.PixelTypeBytes(t))
	buf.stride[4] = esize
	for axis := 3; axis >= 0; axis-- {
		buf.stride[axis] = int64(buf.dims[axis+1]) * buf.stride[axis+1]
	}
	buf.data = make([]byte, int64(buf.dims[0])*buf.stride[0])
	return buf
}

// PixelType returns the numeric type backing each element.
func (buf *Buffer) PixelType() ezimage.PixelType {
	return buf.pixelType
}

// Dims returns the canonical (T,Z,Y,X,C) extents.
func (buf *Buffer) Dims() [5]int32 {
	return buf.dims
}

// Bytes exposes the underlying canonical byte slice without copying.
func (buf *Buffer) Bytes() []byte {
	return buf.data
}

// Element returns the raw bytes of one element at canonical (t,z,y,x,c).
func (buf *Buffer) Element(p [5]int32) []byte {
	var off int64
	for axis := 0; axis < 5; axis++ {
		off += int64(p[axis]) * buf.stride[axis]
	}
	return buf.data[off : off+buf.stride[4]]
}

// WritePlane copies a row-major (h, w) plane into the buffer at the given
// (t, z, c) coordinate, flush against the buffer's Y/X origin.  The plane's
// element type must match the buffer's pixel type.
func (buf *Buffer) WritePlane(t, z, c int32, plane []byte, w, h int32) error {
	esize := buf.stride[4]
	if int64(len(plane)) != int64(w)*int64(h)*esize {
		return fmt.Errorf("plane buffer is %d bytes, want %d x %d elements of %s (%d bytes)",
			len(plane), w, h, buf.pixelType, int64(w)*int64(h)*esize)
	}
	if t >= buf.dims[0] || z >= buf.dims[1] || h > buf.dims[2] || w > buf.dims[3] || c >= buf.dims[4] {
		return fmt.Errorf("plane write (t=%d, z=%d, c=%d, %dx%d) exceeds buffer dims %v",
			t, z, c, w, h, buf.dims)
	}
	rowBytes := int64(w) * esize
	base := int64(t)*buf.stride[0] + int64(z)*buf.stride[1] + int64(c)*buf.stride[4]
	for y := int32(0); y < h; y++ {
		src := plane[int64(y)*rowBytes : int64(y+1)*rowBytes]
		dst := base + int64(y)*buf.stride[2]
		if buf.dims[4] == 1 {
			// Single channel: X elements are contiguous in the buffer.
			copy(buf.data[dst:dst+rowBytes], src)
			continue
		}
		for x := int32(0); x < w; x++ {
			di := dst + int64(x)*buf.stride[3]
			si := int64(x) * esize
			copy(buf.data[di:di+esize], src[si:si+esize])
		}
	}
	return nil
}

// View is a non-copying axis permutation of a canonical Buffer.  Views
// alias the buffer's storage; callers must not assume exclusive mutable
// ownership of the underlying bytes.
type View struct {
	buf  *Buffer
	perm [5]int // view axis -> canonical axis
}

// CanonicalView returns the identity view in (T,Z,Y,X,C) order.
func CanonicalView(buf *Buffer) *View {
	return &View{buf: buf, perm: [5]int{0, 1, 2, 3, 4}}
}

// PermutedView returns a view whose axis i reads canonical axis perm[i].
func PermutedView(buf *Buffer, perm [5]int) *View {
	return &View{buf: buf, perm: perm}
}

// Shape returns the view's per-axis extents.
func (v *View) Shape() [5]int32 {
	var shape [5]int32
	for i, axis := range v.perm {
		shape[i] = v.buf.dims[axis]
	}
	return shape
}

// PixelType returns the numeric type backing each element.
func (v *View) PixelType() ezimage.PixelType {
	return v.buf.pixelType
}

// Bytes exposes the canonical-order byte slice backing this view.  The
// bytes are shared, not copied, and remain in canonical order regardless of
// the view's axis permutation.
func (v *View) Bytes() []byte {
	return v.buf.Bytes()
}

// Element returns the raw bytes of the element at view coordinates p.
func (v *View) Element(p [5]int32) []byte {
	var canonical [5]int32
	for i, axis := range v.perm {
		canonical[axis] = p[i]
	}
	return v.buf.Element(canonical)
}

// Value returns the element at view coordinates p widened to float64.
func (v *View) Value(p [5]int32) float64 {
	val, _ := v.buf.pixelType.Value(v.Element(p))
	return val
}
