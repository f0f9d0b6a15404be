/*
Package tables fetches the tabular data attached to file annotations and
exposes it as Arrow records, with IPC file round-tripping for local
persistence.
*/
package tables

import (
	"errors"
	"fmt"
	"os"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/ipc"
	"github.com/apache/arrow/go/v14/arrow/memory"

	"github.com/janelia-flyem/ezimage/ezimage"
	"github.com/janelia-flyem/ezimage/store"
)

// GetTable fetches the table stored under a file annotation as an Arrow
// record.  A missing annotation, or one that is not a table, logs a warning
// and returns nil so batch callers can skip it.  The caller must Release
// the returned record.
func GetTable(src store.TableStore, fileAnnID int64) (arrow.Record, error) {
	data, err := src.TableData(fileAnnID)
	if err != nil {
		if errors.Is(err, ezimage.ErrNotFound) || errors.Is(err, ezimage.ErrInvalidArgument) {
			ezimage.Warningf("File annotation %d is not a table or could not be read: %v\n",
				fileAnnID, err)
			return nil, nil
		}
		return nil, err
	}
	return buildRecord(data)
}

func columnType(kind store.ColumnKind) (arrow.DataType, error) {
	switch kind {
	case store.Int64Column:
		return arrow.PrimitiveTypes.Int64, nil
	case store.Float64Column:
		return arrow.PrimitiveTypes.Float64, nil
	case store.StringColumn:
		return arrow.BinaryTypes.String, nil
	default:
		return nil, fmt.Errorf("unknown table column kind %d: %w", kind, ezimage.ErrInvalidArgument)
	}
}

// buildRecord converts column-major table data into an Arrow record.
func buildRecord(data *store.TableData) (arrow.Record, error) {
	pool := memory.NewGoAllocator()
	fields := make([]arrow.Field, len(data.Columns))
	cols := make([]arrow.Array, 0, len(data.Columns))
	defer func() {
		for _, col := range cols {
			col.Release()
		}
	}()

	for i, col := range data.Columns {
		dtype, err := columnType(col.Kind)
		if err != nil {
			return nil, err
		}
		fields[i] = arrow.Field{Name: col.Name, Type: dtype}

		switch col.Kind {
		case store.Int64Column:
			if len(col.Int64s) != data.NumRows {
				return nil, columnLengthErr(col.Name, len(col.Int64s), data.NumRows)
			}
			b := array.NewInt64Builder(pool)
			b.AppendValues(col.Int64s, nil)
			cols = append(cols, b.NewArray())
			b.Release()
		case store.Float64Column:
			if len(col.Float64s) != data.NumRows {
				return nil, columnLengthErr(col.Name, len(col.Float64s), data.NumRows)
			}
			b := array.NewFloat64Builder(pool)
			b.AppendValues(col.Float64s, nil)
			cols = append(cols, b.NewArray())
			b.Release()
		case store.StringColumn:
			if len(col.Strings) != data.NumRows {
				return nil, columnLengthErr(col.Name, len(col.Strings), data.NumRows)
			}
			b := array.NewStringBuilder(pool)
			b.AppendValues(col.Strings, nil)
			cols = append(cols, b.NewArray())
			b.Release()
		}
	}
	schema := arrow.NewSchema(fields, nil)
	return array.NewRecord(schema, cols, int64(data.NumRows)), nil
}

func columnLengthErr(name string, got, want int) error {
	return fmt.Errorf("table column %q has %d values for %d rows", name, got, want)
}

// WriteTable persists a record to an Arrow IPC file.
func WriteTable(path string, rec arrow.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create table file %q: %v", path, err)
	}
	w, err := ipc.NewFileWriter(f, ipc.WithSchema(rec.Schema()))
	if err != nil {
		f.Close()
		return err
	}
	if err := w.Write(rec); err != nil {
		w.Close()
		f.Close()
		return fmt.Errorf("could not write table to %q: %v", path, err)
	}
	if err := w.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadTable loads the first record of an Arrow IPC file.  The caller must
// Release the returned record.
func ReadTable(path string) (arrow.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open table file %q: %v", path, err)
	}
	defer f.Close()
	r, err := ipc.NewFileReader(f, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, fmt.Errorf("%q is not an Arrow IPC file: %v", path, err)
	}
	defer r.Close()
	if r.NumRecords() == 0 {
		return nil, fmt.Errorf("table file %q holds no records: %w", path, ezimage.ErrNotFound)
	}
	rec, err := r.Record(0)
	if err != nil {
		return nil, err
	}
	rec.Retain()
	return rec, nil
}
