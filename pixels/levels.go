package pixels

import (
	"github.com/janelia-flyem/ezimage/store"
)

// PyramidLevels lists the (width, height) of every precomputed resolution
// level for an image, ordered from full resolution at index 0.
func PyramidLevels(src store.ImageStore, imageID int64) ([]store.Resolution, error) {
	desc, err := src.DescribeImage(imageID)
	if err != nil {
		return nil, err
	}
	raw, err := src.OpenRawStore(desc.PixelsID)
	if err != nil {
		return nil, err
	}
	defer raw.Close()
	return raw.Resolutions()
}
