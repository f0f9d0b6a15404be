package annotations

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/janelia-flyem/ezimage/ezimage"
)

// mockAnnotations holds one map annotation plus fixed tag/comment/file
// values and records writes.
type mockAnnotations struct {
	pairs [][2]string
	ns    string

	savedPairs [][2]string
	savedNs    string

	descType string
	descText string
}

func (m *mockAnnotations) MapAnnotationValue(id int64) ([][2]string, string, error) {
	if id != 62 {
		return nil, "", fmt.Errorf("map annotation %d: %w", id, ezimage.ErrNotFound)
	}
	return m.pairs, m.ns, nil
}

func (m *mockAnnotations) SaveMapAnnotation(id int64, pairs [][2]string, ns string) error {
	m.savedPairs = pairs
	m.savedNs = ns
	return nil
}

func (m *mockAnnotations) TagValue(id int64) (string, error)     { return "interesting", nil }
func (m *mockAnnotations) CommentValue(id int64) (string, error) { return "check the soma", nil }

func (m *mockAnnotations) FileAnnotationName(id int64) (string, error) {
	return "results/measurements.csv", nil
}

func (m *mockAnnotations) FileAnnotationContent(id int64) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("roi,mean\n1,0.5\n")), nil
}

func (m *mockAnnotations) SetDescription(objType string, id int64, desc string) error {
	m.descType = objType
	m.descText = desc
	return nil
}

func TestGetMapAnnotationCollapsesDuplicates(t *testing.T) {
	m := &mockAnnotations{
		pairs: [][2]string{
			{"testkey", "testvalue"},
			{"testkey2", "testvalue2"},
			{"testkey2", "testvalue3"},
		},
		ns: "test_ns",
	}
	kv, ns, err := GetMapAnnotation(m, 62)
	if err != nil {
		t.Fatalf("GetMapAnnotation: %v", err)
	}
	if ns != "test_ns" {
		t.Errorf("got ns %q, want test_ns", ns)
	}
	if len(kv["testkey"]) != 1 || kv["testkey"][0] != "testvalue" {
		t.Errorf("testkey = %v", kv["testkey"])
	}
	want := []string{"testvalue2", "testvalue3"}
	if len(kv["testkey2"]) != 2 || kv["testkey2"][0] != want[0] || kv["testkey2"][1] != want[1] {
		t.Errorf("testkey2 = %v, want %v", kv["testkey2"], want)
	}
}

func TestGetMapAnnotationMissing(t *testing.T) {
	m := &mockAnnotations{}
	_, _, err := GetMapAnnotation(m, 999)
	if !errors.Is(err, ezimage.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestPutMapAnnotation(t *testing.T) {
	m := &mockAnnotations{ns: "old_ns"}
	kv := MapValue{
		"b": {"2", "3"},
		"a": {"1"},
	}
	if err := PutMapAnnotation(m, 62, kv, ""); err != nil {
		t.Fatalf("PutMapAnnotation: %v", err)
	}
	if m.savedNs != "old_ns" {
		t.Errorf("empty ns saved as %q, want old namespace kept", m.savedNs)
	}
	want := [][2]string{{"a", "1"}, {"b", "2"}, {"b", "3"}}
	if len(m.savedPairs) != len(want) {
		t.Fatalf("saved %v, want %v", m.savedPairs, want)
	}
	for i := range want {
		if m.savedPairs[i] != want[i] {
			t.Errorf("pair %d = %v, want %v", i, m.savedPairs[i], want[i])
		}
	}

	if err := PutMapAnnotation(m, 62, kv, "new_ns"); err != nil {
		t.Fatalf("PutMapAnnotation: %v", err)
	}
	if m.savedNs != "new_ns" {
		t.Errorf("got ns %q, want new_ns", m.savedNs)
	}
}

func TestPutMapAnnotationWithSchema(t *testing.T) {
	const schema = `{
		"type": "object",
		"required": ["species"],
		"properties": {"species": {"type": "string", "enum": ["mouse", "fly"]}}
	}`
	m := &mockAnnotations{}
	err := PutMapAnnotationWithSchema(m, 62, MapValue{"species": {"mouse"}}, "", schema)
	if err != nil {
		t.Fatalf("valid values rejected: %v", err)
	}
	err = PutMapAnnotationWithSchema(m, 62, MapValue{"species": {"cat"}}, "", schema)
	if !errors.Is(err, ezimage.ErrInvalidArgument) {
		t.Errorf("invalid values: got %v, want ErrInvalidArgument", err)
	}
}

func TestGetFileAnnotation(t *testing.T) {
	m := &mockAnnotations{}
	dir := t.TempDir()
	path, err := GetFileAnnotation(m, 17, dir)
	if err != nil {
		t.Fatalf("GetFileAnnotation: %v", err)
	}
	if filepath.Base(path) != "measurements.csv" {
		t.Errorf("got path %q, want basename measurements.csv", path)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "roi,mean\n1,0.5\n" {
		t.Errorf("got content %q", content)
	}
}

func TestPutDescription(t *testing.T) {
	m := &mockAnnotations{}
	if err := PutDescription(m, "Image", 15, "a new description"); err != nil {
		t.Fatalf("PutDescription: %v", err)
	}
	if m.descType != "Image" || m.descText != "a new description" {
		t.Errorf("saved (%q, %q)", m.descType, m.descText)
	}
	err := PutDescription(m, "Experimenter", 15, "nope")
	if !errors.Is(err, ezimage.ErrInvalidArgument) {
		t.Errorf("invalid type: got %v, want ErrInvalidArgument", err)
	}
}
