/*
Package store defines the service interfaces of the remote image server that
the accessor packages consume, along with the wire-level data types those
services exchange.  The interfaces are split by capability so tests and
alternative transports only need to satisfy what they use; the canonical
implementation is the HTTP gateway client in this package.
*/
package store

import (
	"io"

	"github.com/janelia-flyem/ezimage/ezimage"
)

// ZCT identifies one 2D plane within an image's 5D extent.
type ZCT struct {
	Z int32 `json:"z"`
	C int32 `json:"c"`
	T int32 `json:"t"`
}

// TileSpec is a rectangular window within one plane.
type TileSpec struct {
	X      int32 `json:"x"`
	Y      int32 `json:"y"`
	Width  int32 `json:"width"`
	Height int32 `json:"height"`
}

// TileReq scopes a tile window to one plane.
type TileReq struct {
	ZCT
	Tile TileSpec `json:"tile"`
}

// Resolution is the XY extent of one pyramid level.
type Resolution struct {
	Width  int32 `json:"width"`
	Height int32 `json:"height"`
}

// ImageDescriptor holds the server-declared metadata for one image.
// Z, C and T extents are invariant across resolution levels; only the XY
// extent varies per level.
type ImageDescriptor struct {
	ID        int64             `json:"id"`
	Name      string            `json:"name"`
	PixelsID  int64             `json:"pixels_id"`
	SizeX     int32             `json:"size_x"`
	SizeY     int32             `json:"size_y"`
	SizeZ     int32             `json:"size_z"`
	SizeC     int32             `json:"size_c"`
	SizeT     int32             `json:"size_t"`
	PixelType ezimage.PixelType `json:"pixel_type"`

	// Levels lists the precomputed pyramid, ordered from full resolution
	// (level 0) to most decimated.  Empty for non-pyramidal images.
	Levels []Resolution `json:"levels,omitempty"`
}

// ImageMetadata looks up image descriptors.  An id that does not resolve to
// an accessible image yields an error wrapping ezimage.ErrNotFound.
type ImageMetadata interface {
	DescribeImage(id int64) (*ImageDescriptor, error)
}

// PlaneReader is the native full-resolution pixel source.  Planes are
// returned in request order as little-endian row-major (height, width)
// buffers of the image's pixel type.
type PlaneReader interface {
	ReadPlanes(pixelsID int64, planes []ZCT) ([][]byte, error)
	ReadTiles(pixelsID int64, tiles []TileReq) ([][]byte, error)
}

// RawStore is an exclusive raw pixel data channel scoped to one image's
// pixel set.  It must be closed once assembly completes, on all exit paths.
type RawStore interface {
	// Resolutions lists available levels ordered from highest resolution
	// (public level 0) to most decimated.  Note that the store itself
	// indexes resolutions from lowest-resolution first; SetResolution takes
	// that internal index, not the public level.
	Resolutions() ([]Resolution, error)
	SetResolution(internalIndex int) error
	ReadPlane(z, c, t int32) ([]byte, error)
	ReadTile(z, c, t, x, y, w, h int32) ([]byte, error)
	Close() error
}

// RawStoreOpener acquires raw channels for the explicit-level strategy.
type RawStoreOpener interface {
	OpenRawStore(pixelsID int64) (RawStore, error)
}

// ImageStore is the full dependency surface of the pixel region extractor.
type ImageStore interface {
	ImageMetadata
	PlaneReader
	RawStoreOpener
}

// SessionInfo describes an established gateway session.
type SessionInfo struct {
	Key           string `json:"key"`
	ServerVersion string `json:"server_version"`
	UserID        int64  `json:"user_id"`
	GroupID       int64  `json:"group_id"`
}

// Authenticator establishes and tears down gateway sessions.
type Authenticator interface {
	Login(user, password, group string) (*SessionInfo, error)
	Logout() error
}

// ContainerKind enumerates the container types that can scope a listing.
type ContainerKind string

const (
	ProjectContainer          ContainerKind = "project"
	DatasetContainer          ContainerKind = "dataset"
	ScreenContainer           ContainerKind = "screen"
	PlateContainer            ContainerKind = "plate"
	WellContainer             ContainerKind = "well"
	PlateAcquisitionContainer ContainerKind = "plate_acquisition"
	AnnotationContainer       ContainerKind = "annotation"

	// NoContainer lists orphans for contained types and everything
	// accessible for top-level types.
	NoContainer ContainerKind = ""
)

// AnnotationKind enumerates the annotation flavors the server stores.
type AnnotationKind string

const (
	MapAnnotation     AnnotationKind = "map"
	TagAnnotation     AnnotationKind = "tag"
	CommentAnnotation AnnotationKind = "comment"
	FileAnnotation    AnnotationKind = "file"
)

// Lister performs the structural container-traversal queries.
type Lister interface {
	// ListIDs returns ids of objects of the given result type ("image",
	// "dataset", ...) scoped by an optional container.
	ListIDs(result string, container ContainerKind, containerID int64) ([]int64, error)

	// WellAt resolves a well id from plate coordinates, zero-based.
	// Returns an error wrapping ezimage.ErrNotFound if the plate has no
	// well at that position.
	WellAt(plateID int64, row, column int32) (int64, error)

	// AnnotationIDs lists annotations of one kind linked to an object,
	// optionally filtered by namespace.
	AnnotationIDs(objType string, objID int64, kind AnnotationKind, ns string) ([]int64, error)

	ROIIDs(imageID int64) ([]int64, error)
	ShapeIDs(roiID int64) ([]int64, error)

	GroupID(name string) (int64, error)
	UserID(name string) (int64, error)

	// OriginalFilepaths returns either managed-repository relative paths
	// ("repo") or the absolute client paths recorded at import ("client").
	OriginalFilepaths(imageID int64, source string) ([]string, error)

	// SeriesIndex returns the Bioformats series index of the image within
	// its fileset, or -1 for images created without an original file.
	SeriesIndex(imageID int64) (int64, error)
}

// AnnotationStore reads and writes annotation values.
type AnnotationStore interface {
	// MapAnnotationValue returns the key-value pairs and namespace.
	// Duplicate keys are legal and preserved in order.
	MapAnnotationValue(id int64) (pairs [][2]string, ns string, err error)
	SaveMapAnnotation(id int64, pairs [][2]string, ns string) error
	TagValue(id int64) (string, error)
	CommentValue(id int64) (string, error)
	FileAnnotationName(id int64) (string, error)
	FileAnnotationContent(id int64) (io.ReadCloser, error)
	SetDescription(objType string, id int64, desc string) error
}

// WireShape is the transport form of an ROI shape.  Optional fields are
// pointers so absence is distinguishable from zero.
type WireShape struct {
	Type        string   `json:"type"`
	X           float64  `json:"x,omitempty"`
	Y           float64  `json:"y,omitempty"`
	X1          float64  `json:"x1,omitempty"`
	Y1          float64  `json:"y1,omitempty"`
	X2          float64  `json:"x2,omitempty"`
	Y2          float64  `json:"y2,omitempty"`
	Width       float64  `json:"width,omitempty"`
	Height      float64  `json:"height,omitempty"`
	RadiusX     float64  `json:"radius_x,omitempty"`
	RadiusY     float64  `json:"radius_y,omitempty"`
	Points      string   `json:"points,omitempty"`
	Text        string   `json:"text,omitempty"`
	FontSize    float64  `json:"font_size,omitempty"`
	TheZ        *int32   `json:"the_z,omitempty"`
	TheC        *int32   `json:"the_c,omitempty"`
	TheT        *int32   `json:"the_t,omitempty"`
	FillColor   *int32   `json:"fill_color,omitempty"`
	StrokeColor *int32   `json:"stroke_color,omitempty"`
	StrokeWidth *float64 `json:"stroke_width,omitempty"`
	MarkerStart string   `json:"marker_start,omitempty"`
	MarkerEnd   string   `json:"marker_end,omitempty"`
}

// ROIStore reads ROI shapes.
type ROIStore interface {
	Shape(id int64) (*WireShape, error)
}

// ColumnKind types a table column.
type ColumnKind uint8

const (
	Int64Column ColumnKind = iota
	Float64Column
	StringColumn
)

// TableColumn holds one column of tabular data; only the slice matching
// Kind is populated.
type TableColumn struct {
	Name     string
	Kind     ColumnKind
	Int64s   []int64
	Float64s []float64
	Strings  []string
}

// TableData is a column-major table attached to a file annotation.
type TableData struct {
	Columns []TableColumn
	NumRows int
}

// TableStore reads tabular file annotations.  A file annotation that exists
// but is not a table yields an error wrapping ezimage.ErrInvalidArgument.
type TableStore interface {
	TableData(fileAnnID int64) (*TableData, error)
}

// GroupService controls the ambient group context of a session.
type GroupService interface {
	// GroupMembers returns owner and member user ids for a group.
	GroupMembers(groupID int64) (owners, members []int64, err error)

	// SetGroupContext scopes subsequent requests to a group.  The sentinel
	// AllGroups widens queries to every group the user can read.
	SetGroupContext(groupID int64)
	GroupContext() int64
}

// AllGroups is the group-context sentinel for cross-group queries.
const AllGroups int64 = -1

// Client is the complete remote gateway surface.
type Client interface {
	Authenticator
	ImageStore
	Lister
	AnnotationStore
	ROIStore
	TableStore
	GroupService

	ServerVersion() (string, error)
	Close() error
}
