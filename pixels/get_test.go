package pixels

import (
	"errors"
	"fmt"
	"testing"

	"github.com/janelia-flyem/ezimage/ezimage"
	"github.com/janelia-flyem/ezimage/store"
)

// mockStore serves synthetic pixels for a single image and counts every
// data-fetch call so tests can assert on transfer behavior.
type mockStore struct {
	desc   store.ImageDescriptor
	levels []store.Resolution

	planeCalls  int
	tileCalls   int
	rawOpens    int
	rawCloses   int
	rawPlanes   int
	rawTiles    int
	resolutions []int // SetResolution arguments in call order
}

// pixelValue is the deterministic value at a given level and coordinate.
// Values stay below 1<<16 for the uint16 extents used in these tests.
func pixelValue(level int, z, c, t, x, y int32) float64 {
	return float64(int32(level)*23 + x + 7*y + 13*z + 17*c + 19*t)
}

func (m *mockStore) makePlane(level int, z, c, t, x0, y0, w, h int32) []byte {
	esize := ezimage.PixelTypeBytes(m.desc.PixelType)
	plane := make([]byte, w*h*esize)
	for y := int32(0); y < h; y++ {
		for x := int32(0); x < w; x++ {
			off := (y*w + x) * esize
			m.desc.PixelType.PutValue(plane[off:], pixelValue(level, z, c, t, x0+x, y0+y))
		}
	}
	return plane
}

func (m *mockStore) DescribeImage(id int64) (*store.ImageDescriptor, error) {
	if id != m.desc.ID {
		return nil, fmt.Errorf("image %d: %w", id, ezimage.ErrNotFound)
	}
	desc := m.desc
	return &desc, nil
}

func (m *mockStore) ReadPlanes(pixelsID int64, planes []store.ZCT) ([][]byte, error) {
	m.planeCalls++
	out := make([][]byte, len(planes))
	for i, zct := range planes {
		out[i] = m.makePlane(0, zct.Z, zct.C, zct.T, 0, 0, m.desc.SizeX, m.desc.SizeY)
	}
	return out, nil
}

func (m *mockStore) ReadTiles(pixelsID int64, tiles []store.TileReq) ([][]byte, error) {
	m.tileCalls++
	out := make([][]byte, len(tiles))
	for i, req := range tiles {
		out[i] = m.makePlane(0, req.Z, req.C, req.T,
			req.Tile.X, req.Tile.Y, req.Tile.Width, req.Tile.Height)
	}
	return out, nil
}

func (m *mockStore) OpenRawStore(pixelsID int64) (store.RawStore, error) {
	m.rawOpens++
	return &mockRawStore{m: m, internal: -1}, nil
}

type mockRawStore struct {
	m        *mockStore
	internal int
}

func (r *mockRawStore) Resolutions() ([]store.Resolution, error) {
	return r.m.levels, nil
}

func (r *mockRawStore) SetResolution(internalIndex int) error {
	r.m.resolutions = append(r.m.resolutions, internalIndex)
	r.internal = internalIndex
	return nil
}

// level maps the store-internal index back to the public pyramid level.
func (r *mockRawStore) level() int {
	return len(r.m.levels) - r.internal - 1
}

func (r *mockRawStore) ReadPlane(z, c, t int32) ([]byte, error) {
	r.m.rawPlanes++
	res := r.m.levels[r.level()]
	return r.m.makePlane(r.level(), z, c, t, 0, 0, res.Width, res.Height), nil
}

func (r *mockRawStore) ReadTile(z, c, t, x, y, w, h int32) ([]byte, error) {
	r.m.rawTiles++
	return r.m.makePlane(r.level(), z, c, t, x, y, w, h), nil
}

func (r *mockRawStore) Close() error {
	r.m.rawCloses++
	return nil
}

func (m *mockStore) fetchCalls() int {
	return m.planeCalls + m.tileCalls + m.rawPlanes + m.rawTiles
}

func newMockStore() *mockStore {
	return &mockStore{
		desc: store.ImageDescriptor{
			ID:        314,
			Name:      "test stack",
			PixelsID:  7314,
			SizeX:     16,
			SizeY:     12,
			SizeZ:     4,
			SizeC:     2,
			SizeT:     3,
			PixelType: ezimage.T_uint16,
		},
		levels: []store.Resolution{{Width: 16, Height: 12}, {Width: 8, Height: 6}, {Width: 4, Height: 3}, {Width: 2, Height: 2}},
	}
}

func TestRegionShape(t *testing.T) {
	m := newMockStore()
	_, view, err := GetImage(m, 314, Region{
		StartCoords: []int32{2, 1, 1, 0, 0},
		AxisLengths: []int32{5, 4, 2, 2, 3},
	})
	if err != nil {
		t.Fatalf("GetImage: %v", err)
	}
	// Canonical shape is (T,Z,Y,X,C) of the XYZCT request lengths.
	want := [5]int32{3, 2, 4, 5, 2}
	if view.Shape() != want {
		t.Errorf("got shape %v, want %v", view.Shape(), want)
	}
}

func TestFullExtentRoundTrip(t *testing.T) {
	m := newMockStore()
	desc, view, err := GetImage(m, 314, Region{})
	if err != nil {
		t.Fatalf("GetImage: %v", err)
	}
	if desc == nil || desc.ID != 314 {
		t.Fatalf("got descriptor %v, want image 314", desc)
	}
	want := [5]int32{3, 4, 12, 16, 2}
	if view.Shape() != want {
		t.Fatalf("got shape %v, want %v", view.Shape(), want)
	}
	// Full extent must go through one batched whole-plane read.
	if m.planeCalls != 1 || m.tileCalls != 0 {
		t.Errorf("got %d plane calls, %d tile calls; want 1, 0", m.planeCalls, m.tileCalls)
	}
	for tt := int32(0); tt < 3; tt++ {
		for z := int32(0); z < 4; z++ {
			for y := int32(0); y < 12; y++ {
				for x := int32(0); x < 16; x++ {
					for c := int32(0); c < 2; c++ {
						got := view.Value([5]int32{tt, z, y, x, c})
						want := pixelValue(0, z, c, tt, x, y)
						if got != want {
							t.Fatalf("value at (t=%d,z=%d,y=%d,x=%d,c=%d) = %g, want %g",
								tt, z, y, x, c, got, want)
						}
					}
				}
			}
		}
	}
}

func TestTiledSubregion(t *testing.T) {
	m := newMockStore()
	start := []int32{3, 2, 1, 0, 1}
	lengths := []int32{6, 5, 2, 2, 2}
	_, view, err := GetImage(m, 314, Region{StartCoords: start, AxisLengths: lengths})
	if err != nil {
		t.Fatalf("GetImage: %v", err)
	}
	if m.tileCalls != 1 || m.planeCalls != 0 {
		t.Errorf("got %d tile calls, %d plane calls; want 1, 0", m.tileCalls, m.planeCalls)
	}
	// Spot-check that trimmed planes land flush against the buffer origin
	// with the start offset consumed by the fetch.
	got := view.Value([5]int32{0, 0, 0, 0, 0})
	want := pixelValue(0, start[2], start[3], start[4], start[0], start[1])
	if got != want {
		t.Errorf("origin value = %g, want %g", got, want)
	}
	got = view.Value([5]int32{1, 1, 4, 5, 1})
	want = pixelValue(0, start[2]+1, start[3]+1, start[4]+1, start[0]+5, start[1]+4)
	if got != want {
		t.Errorf("corner value = %g, want %g", got, want)
	}
}

func TestPaddingZeroFill(t *testing.T) {
	m := newMockStore()
	// Overhang of 4 on the X axis only.
	_, view, err := GetImage(m, 314, Region{
		StartCoords: []int32{10, 0, 0, 0, 0},
		AxisLengths: []int32{10, 12, 4, 2, 3},
		Pad:         true,
	})
	if err != nil {
		t.Fatalf("GetImage: %v", err)
	}
	want := [5]int32{3, 4, 12, 10, 2}
	if view.Shape() != want {
		t.Fatalf("got shape %v, want un-trimmed %v", view.Shape(), want)
	}
	for x := int32(0); x < 10; x++ {
		got := view.Value([5]int32{1, 1, 3, x, 1})
		var wantVal float64
		if x < 6 { // only 6 columns are in bounds from start 10 in extent 16
			wantVal = pixelValue(0, 1, 1, 1, 10+x, 3)
		}
		if got != wantVal {
			t.Errorf("x=%d: value %g, want %g", x, got, wantVal)
		}
	}
}

func TestOutOfBoundsBeforeFetch(t *testing.T) {
	m := newMockStore()
	_, _, err := GetImage(m, 314, Region{
		StartCoords: []int32{10, 0, 0, 0, 0},
		AxisLengths: []int32{10, 12, 4, 2, 3},
	})
	if !errors.Is(err, ezimage.ErrOutOfBounds) {
		t.Fatalf("got error %v, want ErrOutOfBounds", err)
	}
	if m.fetchCalls() != 0 {
		t.Errorf("bounds failure issued %d fetch calls, want 0", m.fetchCalls())
	}
}

func TestPyramidIndexInversion(t *testing.T) {
	// The formula itself, for a 4-level pyramid.
	for p, want := range []int{3, 2, 1, 0} {
		if got := rawResolutionIndex(4, p); got != want {
			t.Errorf("rawResolutionIndex(4, %d) = %d, want %d", p, got, want)
		}
	}
	// End to end: positive levels must set the reversed internal index.
	for p := 1; p <= 3; p++ {
		m := newMockStore()
		_, _, err := GetImage(m, 314, Region{PyramidLevel: p})
		if err != nil {
			t.Fatalf("GetImage level %d: %v", p, err)
		}
		if len(m.resolutions) != 1 || m.resolutions[0] != 4-p-1 {
			t.Errorf("level %d set internal resolution %v, want [%d]", p, m.resolutions, 4-p-1)
		}
		if m.rawCloses != 1 {
			t.Errorf("level %d: raw store closed %d times, want 1", p, m.rawCloses)
		}
	}
	// Level 0 is the native path and must not touch the raw store.
	m := newMockStore()
	if _, _, err := GetImage(m, 314, Region{PyramidLevel: 0}); err != nil {
		t.Fatalf("GetImage level 0: %v", err)
	}
	if m.rawOpens != 0 {
		t.Errorf("level 0 opened %d raw stores, want 0", m.rawOpens)
	}
}

func TestPyramidLevelFetch(t *testing.T) {
	m := newMockStore()
	_, view, err := GetImage(m, 314, Region{PyramidLevel: 2})
	if err != nil {
		t.Fatalf("GetImage: %v", err)
	}
	// Level 2 extent is 4x3; Z/C/T stay at native sizes.
	want := [5]int32{3, 4, 3, 4, 2}
	if view.Shape() != want {
		t.Fatalf("got shape %v, want %v", view.Shape(), want)
	}
	if m.rawPlanes == 0 || m.rawTiles != 0 {
		t.Errorf("full-extent level fetch used %d plane reads, %d tile reads; want whole planes only",
			m.rawPlanes, m.rawTiles)
	}
	got := view.Value([5]int32{2, 3, 1, 2, 1})
	wantVal := pixelValue(2, 3, 1, 2, 2, 1)
	if got != wantVal {
		t.Errorf("value = %g, want %g", got, wantVal)
	}
}

func TestPyramidLevelTiled(t *testing.T) {
	m := newMockStore()
	_, view, err := GetImage(m, 314, Region{
		PyramidLevel: 1,
		StartCoords:  []int32{2, 1, 0, 0, 0},
		AxisLengths:  []int32{4, 3, 4, 2, 3},
	})
	if err != nil {
		t.Fatalf("GetImage: %v", err)
	}
	if m.rawTiles == 0 || m.rawPlanes != 0 {
		t.Errorf("subregion level fetch used %d tile reads, %d plane reads; want tiles only",
			m.rawTiles, m.rawPlanes)
	}
	got := view.Value([5]int32{1, 2, 1, 3, 1})
	wantVal := pixelValue(1, 2, 1, 1, 2+3, 1+1)
	if got != wantVal {
		t.Errorf("value = %g, want %g", got, wantVal)
	}
	if m.rawCloses != 1 {
		t.Errorf("raw store closed %d times, want 1", m.rawCloses)
	}
}

func TestDimOrderView(t *testing.T) {
	m := newMockStore()
	_, canonical, err := GetImage(m, 314, Region{})
	if err != nil {
		t.Fatalf("GetImage: %v", err)
	}
	m2 := newMockStore()
	_, reordered, err := GetImage(m2, 314, Region{DimOrder: "xyzct"})
	if err != nil {
		t.Fatalf("GetImage: %v", err)
	}
	want := [5]int32{16, 12, 4, 2, 3}
	if reordered.Shape() != want {
		t.Fatalf("got shape %v, want %v", reordered.Shape(), want)
	}
	samples := [][5]int32{
		{0, 0, 0, 0, 0},
		{5, 3, 2, 1, 1},
		{15, 11, 3, 1, 2},
		{1, 7, 1, 0, 2},
	}
	for _, p := range samples {
		x, y, z, c, tt := p[0], p[1], p[2], p[3], p[4]
		got := reordered.Value([5]int32{x, y, z, c, tt})
		wantVal := canonical.Value([5]int32{tt, z, y, x, c})
		if got != wantVal {
			t.Errorf("reordered[%v] = %g, want canonical value %g", p, got, wantVal)
		}
	}
}

func TestXYZCTFlag(t *testing.T) {
	m := newMockStore()
	_, view, err := GetImage(m, 314, Region{XYZCT: true})
	if err != nil {
		t.Fatalf("GetImage: %v", err)
	}
	want := [5]int32{16, 12, 4, 2, 3}
	if view.Shape() != want {
		t.Errorf("got shape %v, want %v", view.Shape(), want)
	}
}

func TestNoPixels(t *testing.T) {
	m := newMockStore()
	desc, view, err := GetImage(m, 314, Region{
		NoPixels:     true,
		PyramidLevel: 2,
		StartCoords:  []int32{1, 1, 1, 1, 1},
		AxisLengths:  []int32{2, 2, 2, 1, 1},
	})
	if err != nil {
		t.Fatalf("GetImage: %v", err)
	}
	if desc == nil {
		t.Fatal("got nil descriptor")
	}
	if view != nil {
		t.Errorf("got pixel view %v, want nil", view.Shape())
	}
	if m.fetchCalls() != 0 || m.rawOpens != 0 {
		t.Errorf("metadata-only request issued %d fetches, %d raw opens; want 0, 0",
			m.fetchCalls(), m.rawOpens)
	}
}

func TestOutOfRangeLevel(t *testing.T) {
	m := newMockStore()
	_, _, err := GetImage(m, 314, Region{PyramidLevel: 4})
	if !errors.Is(err, ezimage.ErrOutOfRange) {
		t.Fatalf("got error %v, want ErrOutOfRange", err)
	}
	if m.fetchCalls() != 0 {
		t.Errorf("out-of-range level issued %d fetch calls, want 0", m.fetchCalls())
	}
	if m.rawCloses != m.rawOpens {
		t.Errorf("raw store leaked: %d opens, %d closes", m.rawOpens, m.rawCloses)
	}
}

func TestNotFoundIsNilResult(t *testing.T) {
	m := newMockStore()
	desc, view, err := GetImage(m, 9999, Region{})
	if err != nil {
		t.Fatalf("missing image must not error, got %v", err)
	}
	if desc != nil || view != nil {
		t.Errorf("missing image returned (%v, %v), want (nil, nil)", desc, view)
	}
}

func TestInvalidArguments(t *testing.T) {
	m := newMockStore()
	bad := []Region{
		{StartCoords: []int32{1, 2, 3}},
		{AxisLengths: []int32{1, 2, 3, 4}},
		{StartCoords: []int32{-1, 0, 0, 0, 0}},
		{PyramidLevel: -2},
		{DimOrder: "xyzc"},
		{DimOrder: "xxzct"},
		{DimOrder: "abcde"},
	}
	for i, region := range bad {
		_, _, err := GetImage(m, 314, region)
		if !errors.Is(err, ezimage.ErrInvalidArgument) {
			t.Errorf("case %d: got error %v, want ErrInvalidArgument", i, err)
		}
	}
	if m.fetchCalls() != 0 {
		t.Errorf("invalid requests issued %d fetch calls, want 0", m.fetchCalls())
	}
}

func TestStartPastExtentIsEmptyAxis(t *testing.T) {
	m := newMockStore()
	// Start beyond the X extent with defaulted lengths: an empty axis, not
	// an error, with no fetch traffic.
	_, view, err := GetImage(m, 314, Region{
		StartCoords: []int32{20, 0, 0, 0, 0},
	})
	if err != nil {
		t.Fatalf("GetImage: %v", err)
	}
	if shape := view.Shape(); shape[3] != 0 {
		t.Errorf("got X extent %d, want empty axis", shape[3])
	}
	if m.fetchCalls() != 0 {
		t.Errorf("empty-axis request issued %d fetch calls, want 0", m.fetchCalls())
	}
}

func TestPyramidLevels(t *testing.T) {
	m := newMockStore()
	levels, err := PyramidLevels(m, 314)
	if err != nil {
		t.Fatalf("PyramidLevels: %v", err)
	}
	if len(levels) != 4 || levels[0] != (store.Resolution{Width: 16, Height: 12}) {
		t.Errorf("got levels %v", levels)
	}
	if m.rawCloses != 1 {
		t.Errorf("raw store closed %d times, want 1", m.rawCloses)
	}
}
