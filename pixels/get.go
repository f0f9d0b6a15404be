/*
Package pixels implements multi-resolution pixel-region extraction from a
remote tiled image store.  A region request is normalized against the
image's declared extents, bounds-checked with an optional zero-padding
policy, fetched through one of two strategies (native full-resolution
plane/tile reads, or an explicit pyramid level through a dedicated raw
pixel channel), and assembled into a canonical (T,Z,Y,X,C) buffer that can
be viewed in any caller-requested axis order without copying.
*/
package pixels

import (
	"errors"
	"fmt"

	"github.com/janelia-flyem/ezimage/ezimage"
	"github.com/janelia-flyem/ezimage/store"
)

// GetImage returns an image's descriptor along with the requested pixel
// region.  An image id that doesn't resolve to an accessible image returns
// (nil, nil, nil) with a logged warning so batch callers can skip it.  With
// region.NoPixels the view is nil and no pixel data is transferred.
//
// The returned view may alias the internal canonical buffer; callers must
// not assume exclusive mutable ownership of the underlying bytes.
func GetImage(src store.ImageStore, imageID int64, region Region) (*store.ImageDescriptor, *View, error) {
	if err := region.validate(); err != nil {
		return nil, nil, err
	}

	desc, err := src.DescribeImage(imageID)
	if err != nil {
		if errors.Is(err, ezimage.ErrNotFound) {
			ezimage.Warningf("Cannot load image %d - check if you have permissions to do so\n", imageID)
			return nil, nil, nil
		}
		return nil, nil, err
	}
	if region.NoPixels {
		return desc, nil, nil
	}
	if ezimage.PixelTypeBytes(desc.PixelType) == 0 {
		return nil, nil, fmt.Errorf("image %d: %w", imageID, ezimage.ErrBadPixelType)
	}

	// The strategy is fixed here, once per call: pyramid level 0 is by
	// definition the native resolution, so only positive levels need the
	// dedicated raw channel.
	var view *View
	if region.PyramidLevel == 0 {
		view, err = getFullResolution(src, desc, region)
	} else {
		view, err = getPyramidLevel(src, desc, region)
	}
	if err != nil {
		return nil, nil, err
	}
	return desc, view, nil
}

// nativeExtent is the image's full-resolution XYZCT extent.
func nativeExtent(desc *store.ImageDescriptor) ezimage.Lengths5d {
	return ezimage.Lengths5d{desc.SizeX, desc.SizeY, desc.SizeZ, desc.SizeC, desc.SizeT}
}

// enumerateZCT lists the (z,c,t) combinations to fetch, iterating Z
// outermost, then C, then T.  Batched plane APIs can depend on this call
// ordering, so it must not change.
func enumerateZCT(start ezimage.Coords5d, eff ezimage.Lengths5d) []store.ZCT {
	zcts := make([]store.ZCT, 0, int(eff[ezimage.AxisZ])*int(eff[ezimage.AxisC])*int(eff[ezimage.AxisT]))
	for z := start[ezimage.AxisZ]; z < start[ezimage.AxisZ]+eff[ezimage.AxisZ]; z++ {
		for c := start[ezimage.AxisC]; c < start[ezimage.AxisC]+eff[ezimage.AxisC]; c++ {
			for t := start[ezimage.AxisT]; t < start[ezimage.AxisT]+eff[ezimage.AxisT]; t++ {
				zcts = append(zcts, store.ZCT{Z: z, C: c, T: t})
			}
		}
	}
	return zcts
}

// checkBounds computes the overhang of the resolved request against the
// active level's extent and applies the padding policy.  It returns the
// effective (trimmed) fetch lengths.
func checkBounds(start ezimage.Coords5d, lengths, extent ezimage.Lengths5d, pad bool) (ezimage.Lengths5d, error) {
	over := overhangs(start, lengths, extent)
	if anyOverhang(over) && !pad {
		return ezimage.Lengths5d{}, fmt.Errorf(
			"attempting to access out-of-bounds pixel (start %s, lengths %s, extent %s); adjust axis lengths or enable padding: %w",
			start, lengths, extent, ezimage.ErrOutOfBounds)
	}
	return clip(lengths, over), nil
}

// wholePlanes reports whether the effective region spans the full XY extent
// of the active level, letting planes be fetched whole instead of tiled.
func wholePlanes(start ezimage.Coords5d, eff, extent ezimage.Lengths5d) bool {
	return start[ezimage.AxisX] == 0 && start[ezimage.AxisY] == 0 &&
		eff[ezimage.AxisX] == extent[ezimage.AxisX] &&
		eff[ezimage.AxisY] == extent[ezimage.AxisY]
}

// getFullResolution fetches through the image's default tiled-plane API.
func getFullResolution(src store.ImageStore, desc *store.ImageDescriptor, region Region) (*View, error) {
	extent := nativeExtent(desc)
	start, lengths := region.resolve(extent)
	eff, err := checkBounds(start, lengths, extent, region.Pad)
	if err != nil {
		return nil, err
	}

	buf := NewBuffer(desc.PixelType, lengths)
	zcts := enumerateZCT(start, eff)
	if len(zcts) == 0 || eff[ezimage.AxisX] == 0 || eff[ezimage.AxisY] == 0 {
		// Nothing in bounds; the zero-filled buffer is the whole answer.
		return PermutedView(buf, region.outputPerm()), nil
	}

	var planes [][]byte
	var w, h int32
	if wholePlanes(start, eff, extent) {
		w, h = extent[ezimage.AxisX], extent[ezimage.AxisY]
		planes, err = src.ReadPlanes(desc.PixelsID, zcts)
	} else {
		w, h = eff[ezimage.AxisX], eff[ezimage.AxisY]
		tile := store.TileSpec{
			X:      start[ezimage.AxisX],
			Y:      start[ezimage.AxisY],
			Width:  w,
			Height: h,
		}
		reqs := make([]store.TileReq, len(zcts))
		for i, zct := range zcts {
			reqs[i] = store.TileReq{ZCT: zct, Tile: tile}
		}
		planes, err = src.ReadTiles(desc.PixelsID, reqs)
	}
	if err != nil {
		return nil, err
	}
	if err := writePlanes(buf, zcts, start, planes, w, h); err != nil {
		return nil, err
	}
	return PermutedView(buf, region.outputPerm()), nil
}

// rawResolutionIndex converts a public pyramid level, which counts down
// from full resolution at 0, to the raw store's internal index, which
// counts up from the most decimated resolution.
func rawResolutionIndex(numLevels, level int) int {
	return numLevels - level - 1
}

// getPyramidLevel fetches through a dedicated raw pixel channel opened at a
// specific decimated resolution.
func getPyramidLevel(src store.ImageStore, desc *store.ImageDescriptor, region Region) (view *View, err error) {
	raw, err := src.OpenRawStore(desc.PixelsID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := raw.Close(); cerr != nil {
			ezimage.Errorf("closing raw pixel store for image %d: %v\n", desc.ID, cerr)
		}
	}()

	levels, err := raw.Resolutions()
	if err != nil {
		return nil, err
	}
	if region.PyramidLevel >= len(levels) {
		return nil, fmt.Errorf("pyramid level %d requested but image %d has %d levels: %w",
			region.PyramidLevel, desc.ID, len(levels), ezimage.ErrOutOfRange)
	}
	if err := raw.SetResolution(rawResolutionIndex(len(levels), region.PyramidLevel)); err != nil {
		return nil, err
	}
	level := levels[region.PyramidLevel]
	extent := ezimage.Lengths5d{level.Width, level.Height, desc.SizeZ, desc.SizeC, desc.SizeT}

	start, lengths := region.resolve(extent)
	eff, err := checkBounds(start, lengths, extent, region.Pad)
	if err != nil {
		return nil, err
	}

	buf := NewBuffer(desc.PixelType, lengths)
	zcts := enumerateZCT(start, eff)
	if len(zcts) == 0 || eff[ezimage.AxisX] == 0 || eff[ezimage.AxisY] == 0 {
		return PermutedView(buf, region.outputPerm()), nil
	}

	whole := wholePlanes(start, eff, extent)
	w, h := eff[ezimage.AxisX], eff[ezimage.AxisY]
	if whole {
		w, h = extent[ezimage.AxisX], extent[ezimage.AxisY]
	}
	planes := make([][]byte, len(zcts))
	for i, zct := range zcts {
		if whole {
			planes[i], err = raw.ReadPlane(zct.Z, zct.C, zct.T)
		} else {
			planes[i], err = raw.ReadTile(zct.Z, zct.C, zct.T,
				start[ezimage.AxisX], start[ezimage.AxisY], w, h)
		}
		if err != nil {
			return nil, err
		}
	}
	if err := writePlanes(buf, zcts, start, planes, w, h); err != nil {
		return nil, err
	}
	return PermutedView(buf, region.outputPerm()), nil
}

// writePlanes copies fetched planes into the canonical buffer, re-zeroing
// each plane's coordinates against the request start.  Every plane targets
// a disjoint buffer region, so final contents are order-independent.
func writePlanes(buf *Buffer, zcts []store.ZCT, start ezimage.Coords5d, planes [][]byte, w, h int32) error {
	if len(planes) != len(zcts) {
		return fmt.Errorf("pixel source returned %d planes for %d requested (z,c,t) coordinates",
			len(planes), len(zcts))
	}
	for i, plane := range planes {
		zct := zcts[i]
		err := buf.WritePlane(
			zct.T-start[ezimage.AxisT],
			zct.Z-start[ezimage.AxisZ],
			zct.C-start[ezimage.AxisC],
			plane, w, h)
		if err != nil {
			return fmt.Errorf("assembling plane (z=%d, c=%d, t=%d): %v", zct.Z, zct.C, zct.T, err)
		}
	}
	return nil
}
