/*
Package annotations reads and writes the annotation objects attached to
images and containers: key-value map annotations, tags, comments, file
attachments, and object descriptions.
*/
package annotations

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/janelia-flyem/ezimage/ezimage"
	"github.com/janelia-flyem/ezimage/store"
)

// MapValue is the decoded form of a map annotation.  The server stores an
// ordered pair list where duplicate keys are legal, so each key maps to the
// list of its values in stored order.
type MapValue map[string][]string

// GetMapAnnotation returns the key-value pairs of a map annotation along
// with its namespace.
func GetMapAnnotation(src store.AnnotationStore, mapAnnID int64) (MapValue, string, error) {
	pairs, ns, err := src.MapAnnotationValue(mapAnnID)
	if err != nil {
		if errors.Is(err, ezimage.ErrNotFound) {
			return nil, "", fmt.Errorf("map annotation %d is non-existent or you do not have permissions to read it: %w",
				mapAnnID, err)
		}
		return nil, "", err
	}
	kv := make(MapValue, len(pairs))
	for _, pair := range pairs {
		kv[pair[0]] = append(kv[pair[0]], pair[1])
	}
	return kv, ns, nil
}

// PutMapAnnotation replaces the values of an existing map annotation.  An
// empty ns keeps the annotation's current namespace.  Keys are written in
// sorted order with each key's values kept in their given order.
func PutMapAnnotation(src store.AnnotationStore, mapAnnID int64, kv MapValue, ns string) error {
	_, currentNs, err := src.MapAnnotationValue(mapAnnID)
	if err != nil {
		if errors.Is(err, ezimage.ErrNotFound) {
			return fmt.Errorf("map annotation %d is non-existent or you do not have permissions to change it: %w",
				mapAnnID, err)
		}
		return err
	}
	if ns == "" {
		ns = currentNs
	}
	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var pairs [][2]string
	for _, k := range keys {
		for _, v := range kv[k] {
			pairs = append(pairs, [2]string{k, v})
		}
	}
	return src.SaveMapAnnotation(mapAnnID, pairs, ns)
}

// PutMapAnnotationWithSchema validates kv against a JSON schema before
// writing.  Values are presented to the schema as a string or an array of
// strings depending on multiplicity, matching the decoded GetMapAnnotation
// form.
func PutMapAnnotationWithSchema(src store.AnnotationStore, mapAnnID int64, kv MapValue, ns, schemaJSON string) error {
	schema, err := jsonschema.CompileString("map_annotation.json", schemaJSON)
	if err != nil {
		return fmt.Errorf("could not compile annotation schema: %v", err)
	}
	doc := make(map[string]interface{}, len(kv))
	for k, values := range kv {
		if len(values) == 1 {
			doc[k] = values[0]
			continue
		}
		arr := make([]interface{}, len(values))
		for i, v := range values {
			arr[i] = v
		}
		doc[k] = arr
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("map annotation values failed schema validation: %w: %v",
			ezimage.ErrInvalidArgument, err)
	}
	return PutMapAnnotation(src, mapAnnID, kv, ns)
}

// GetTag returns the text value of a tag annotation.
func GetTag(src store.AnnotationStore, tagID int64) (string, error) {
	return src.TagValue(tagID)
}

// GetComment returns the text value of a comment annotation.
func GetComment(src store.AnnotationStore, commentID int64) (string, error) {
	return src.CommentValue(commentID)
}

// GetFileAnnotation downloads a file annotation's content into dir, using
// the stored filename, and returns the written path.
func GetFileAnnotation(src store.AnnotationStore, fileAnnID int64, dir string) (string, error) {
	name, err := src.FileAnnotationName(fileAnnID)
	if err != nil {
		return "", err
	}
	content, err := src.FileAnnotationContent(fileAnnID)
	if err != nil {
		return "", err
	}
	defer content.Close()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("could not create download directory %q: %v", dir, err)
	}
	path := filepath.Join(dir, filepath.Base(name))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("could not create file %q: %v", path, err)
	}
	n, err := io.Copy(f, content)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("could not download file annotation %d: %v", fileAnnID, err)
	}
	ezimage.Debugf("Downloaded file annotation %d to %s (%d bytes)\n", fileAnnID, path, n)
	return path, nil
}

// validDescriptionTypes is the closed set of objects whose description can
// be replaced.
var validDescriptionTypes = map[string]bool{
	"Image":             true,
	"Dataset":           true,
	"Project":           true,
	"FileAnnotation":    true,
	"CommentAnnotation": true,
	"MapAnnotation":     true,
	"TagAnnotation":     true,
	"Plate":             true,
	"Screen":            true,
	"Roi":               true,
}

// PutDescription replaces the description of an object.
func PutDescription(src store.AnnotationStore, objType string, objID int64, desc string) error {
	if !validDescriptionTypes[objType] {
		valid := make([]string, 0, len(validDescriptionTypes))
		for t := range validDescriptionTypes {
			valid = append(valid, t)
		}
		sort.Strings(valid)
		return fmt.Errorf("object type %q is not valid (one of %s): %w",
			objType, strings.Join(valid, ", "), ezimage.ErrInvalidArgument)
	}
	return src.SetDescription(objType, objID, desc)
}
