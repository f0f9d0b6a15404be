package tables

import (
	"path/filepath"
	"testing"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"

	"github.com/janelia-flyem/ezimage/store"
)

func sampleTable() *store.TableData {
	return &store.TableData{
		NumRows: 3,
		Columns: []store.TableColumn{
			{Name: "roi_id", Kind: store.Int64Column, Int64s: []int64{4, 8, 15}},
			{Name: "mean_intensity", Kind: store.Float64Column, Float64s: []float64{0.5, 1.25, 2.0}},
			{Name: "label", Kind: store.StringColumn, Strings: []string{"soma", "axon", "dendrite"}},
		},
	}
}

func checkRecord(t *testing.T, rec arrow.Record) {
	t.Helper()
	if rec.NumRows() != 3 || rec.NumCols() != 3 {
		t.Fatalf("got %d rows x %d cols, want 3 x 3", rec.NumRows(), rec.NumCols())
	}
	schema := rec.Schema()
	if schema.Field(0).Name != "roi_id" || schema.Field(0).Type.ID() != arrow.INT64 {
		t.Errorf("field 0 = %v", schema.Field(0))
	}
	if schema.Field(1).Name != "mean_intensity" || schema.Field(1).Type.ID() != arrow.FLOAT64 {
		t.Errorf("field 1 = %v", schema.Field(1))
	}
	if schema.Field(2).Name != "label" || schema.Field(2).Type.ID() != arrow.STRING {
		t.Errorf("field 2 = %v", schema.Field(2))
	}
	ids := rec.Column(0).(*array.Int64)
	if ids.Value(2) != 15 {
		t.Errorf("roi_id[2] = %d, want 15", ids.Value(2))
	}
	means := rec.Column(1).(*array.Float64)
	if means.Value(1) != 1.25 {
		t.Errorf("mean_intensity[1] = %g, want 1.25", means.Value(1))
	}
	labels := rec.Column(2).(*array.String)
	if labels.Value(0) != "soma" {
		t.Errorf("label[0] = %q, want soma", labels.Value(0))
	}
}

func TestBuildRecord(t *testing.T) {
	rec, err := buildRecord(sampleTable())
	if err != nil {
		t.Fatalf("buildRecord: %v", err)
	}
	defer rec.Release()
	checkRecord(t, rec)
}

func TestBuildRecordLengthMismatch(t *testing.T) {
	data := sampleTable()
	data.Columns[0].Int64s = data.Columns[0].Int64s[:2]
	if _, err := buildRecord(data); err == nil {
		t.Error("short column accepted")
	}
}

func TestTableFileRoundTrip(t *testing.T) {
	rec, err := buildRecord(sampleTable())
	if err != nil {
		t.Fatalf("buildRecord: %v", err)
	}
	defer rec.Release()

	path := filepath.Join(t.TempDir(), "measurements.arrow")
	if err := WriteTable(path, rec); err != nil {
		t.Fatalf("WriteTable: %v", err)
	}
	loaded, err := ReadTable(path)
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	defer loaded.Release()
	checkRecord(t, loaded)
}
