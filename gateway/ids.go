package gateway

import (
	"fmt"

	"github.com/janelia-flyem/ezimage/ezimage"
	"github.com/janelia-flyem/ezimage/store"
)

// ImageFilter scopes an image listing to one container.  At most one field
// may be set; the zero filter lists orphaned images.
type ImageFilter struct {
	Project          int64
	Dataset          int64
	Plate            int64
	Well             int64
	PlateAcquisition int64
	Annotation       int64
}

// WellFilter scopes a well or plate-acquisition listing.  Exactly one field
// must be set.
type WellFilter struct {
	Screen     int64
	Plate      int64
	Annotation int64
}

type containerArg struct {
	kind store.ContainerKind
	id   int64
}

// pickContainer enforces the at-most-one-container rule shared by all the
// listing calls and returns the chosen scope.
func pickContainer(args []containerArg) (containerArg, int, error) {
	chosen := containerArg{kind: store.NoContainer}
	count := 0
	for _, arg := range args {
		if arg.id != 0 {
			chosen = arg
			count++
		}
	}
	if count > 1 {
		return chosen, count, fmt.Errorf("only one container can be specified: %w",
			ezimage.ErrInvalidArgument)
	}
	return chosen, count, nil
}

// ImageIDs lists image ids in the container selected by filter, or orphaned
// images for the zero filter.
func ImageIDs(conn *Conn, filter ImageFilter) ([]int64, error) {
	container, _, err := pickContainer([]containerArg{
		{store.ProjectContainer, filter.Project},
		{store.DatasetContainer, filter.Dataset},
		{store.PlateContainer, filter.Plate},
		{store.WellContainer, filter.Well},
		{store.PlateAcquisitionContainer, filter.PlateAcquisition},
		{store.AnnotationContainer, filter.Annotation},
	})
	if err != nil {
		return nil, err
	}
	return conn.ListIDs("image", container.kind, container.id)
}

// ProjectIDs lists project ids, scoped to an annotation when annotationID
// is nonzero.
func ProjectIDs(conn *Conn, annotationID int64) ([]int64, error) {
	if annotationID != 0 {
		return conn.ListIDs("project", store.AnnotationContainer, annotationID)
	}
	return conn.ListIDs("project", store.NoContainer, 0)
}

// DatasetIDs lists dataset ids in a project or linked to an annotation;
// with neither set it lists orphaned datasets.
func DatasetIDs(conn *Conn, projectID, annotationID int64) ([]int64, error) {
	container, _, err := pickContainer([]containerArg{
		{store.ProjectContainer, projectID},
		{store.AnnotationContainer, annotationID},
	})
	if err != nil {
		return nil, err
	}
	return conn.ListIDs("dataset", container.kind, container.id)
}

// ScreenIDs lists screen ids, scoped to an annotation when annotationID is
// nonzero.
func ScreenIDs(conn *Conn, annotationID int64) ([]int64, error) {
	if annotationID != 0 {
		return conn.ListIDs("screen", store.AnnotationContainer, annotationID)
	}
	return conn.ListIDs("screen", store.NoContainer, 0)
}

// PlateIDs lists plate ids in a screen or linked to an annotation; with
// neither set it lists orphaned plates.
func PlateIDs(conn *Conn, screenID, annotationID int64) ([]int64, error) {
	container, _, err := pickContainer([]containerArg{
		{store.ScreenContainer, screenID},
		{store.AnnotationContainer, annotationID},
	})
	if err != nil {
		return nil, err
	}
	return conn.ListIDs("plate", container.kind, container.id)
}

// WellIDs lists well ids in the container selected by filter.  Wells always
// live in a container, so exactly one field must be set.
func WellIDs(conn *Conn, filter WellFilter) ([]int64, error) {
	container, count, err := pickContainer([]containerArg{
		{store.ScreenContainer, filter.Screen},
		{store.PlateContainer, filter.Plate},
		{store.AnnotationContainer, filter.Annotation},
	})
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, fmt.Errorf("one of screen/plate/annotation must be specified: %w",
			ezimage.ErrInvalidArgument)
	}
	return conn.ListIDs("well", container.kind, container.id)
}

// PlateAcquisitionIDs lists plate-acquisition ids in the container selected
// by filter.  Exactly one field must be set.
func PlateAcquisitionIDs(conn *Conn, filter WellFilter) ([]int64, error) {
	container, count, err := pickContainer([]containerArg{
		{store.ScreenContainer, filter.Screen},
		{store.PlateContainer, filter.Plate},
		{store.AnnotationContainer, filter.Annotation},
	})
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, fmt.Errorf("one of screen/plate/annotation must be specified: %w",
			ezimage.ErrInvalidArgument)
	}
	return conn.ListIDs("plate_acquisition", container.kind, container.id)
}

// WellID resolves a well id from zero-based plate coordinates.
func WellID(conn *Conn, plateID int64, row, column int32) (int64, error) {
	return conn.WellAt(plateID, row, column)
}

// ROIIDs lists the ROIs attached to an image.
func ROIIDs(conn *Conn, imageID int64) ([]int64, error) {
	return conn.Client.ROIIDs(imageID)
}

// ShapeIDs lists the shapes of one ROI.
func ShapeIDs(conn *Conn, roiID int64) ([]int64, error) {
	return conn.Client.ShapeIDs(roiID)
}

// MapAnnotationIDs lists map annotations on an object, optionally filtered
// by namespace.
func MapAnnotationIDs(conn *Conn, objType string, objID int64, ns string) ([]int64, error) {
	return conn.AnnotationIDs(objType, objID, store.MapAnnotation, ns)
}

// TagIDs lists tag annotations on an object, optionally filtered by
// namespace.
func TagIDs(conn *Conn, objType string, objID int64, ns string) ([]int64, error) {
	return conn.AnnotationIDs(objType, objID, store.TagAnnotation, ns)
}

// CommentIDs lists comment annotations on an object, optionally filtered by
// namespace.
func CommentIDs(conn *Conn, objType string, objID int64, ns string) ([]int64, error) {
	return conn.AnnotationIDs(objType, objID, store.CommentAnnotation, ns)
}

// FileAnnotationIDs lists file annotations on an object, optionally
// filtered by namespace.
func FileAnnotationIDs(conn *Conn, objType string, objID int64, ns string) ([]int64, error) {
	return conn.AnnotationIDs(objType, objID, store.FileAnnotation, ns)
}

// GroupID resolves a group name to its id.
func GroupID(conn *Conn, name string) (int64, error) {
	return conn.Client.GroupID(name)
}

// UserID resolves a user name to its id.
func UserID(conn *Conn, name string) (int64, error) {
	return conn.Client.UserID(name)
}

// OriginalFilepaths returns the paths of the files an image was imported
// from.  Source "repo" gives managed-repository relative paths; "client"
// gives the absolute paths recorded at import time.
func OriginalFilepaths(conn *Conn, imageID int64, source string) ([]string, error) {
	if source != "repo" && source != "client" {
		return nil, fmt.Errorf("filepath source must be \"repo\" or \"client\", got %q: %w",
			source, ezimage.ErrInvalidArgument)
	}
	return conn.Client.OriginalFilepaths(imageID, source)
}

// SeriesIndex returns the Bioformats series index of an image within its
// fileset, or -1 for images created without an original file.
func SeriesIndex(conn *Conn, imageID int64) (int64, error) {
	return conn.Client.SeriesIndex(imageID)
}
