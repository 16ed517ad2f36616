package csv

import (
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jamespfennell/mzkbb/constants"
)

func TestFile(t *testing.T) {
	content := "\ufeffstop_id,stop_name,stop_lat\n1,Bystra,49.8\n2,,49.9\n3\n"
	f, err := New(constants.StopsFile, io.NopCloser(strings.NewReader(content)))
	if err != nil {
		t.Fatalf("New() returned unexpected error: %s", err)
	}
	id := f.RequiredColumn("stop_id")
	name := f.RequiredColumn("stop_name")
	lat := f.OptionalColumn("stop_lat")
	desc := f.OptionalColumn("stop_desc")
	if missing := f.MissingRequiredColumns(); len(missing) != 0 {
		t.Fatalf("MissingRequiredColumns() = %v, want none", missing)
	}

	type row struct {
		Id, Name, Lat, Desc string
		Missing             []string
	}
	var actual []row
	for f.NextRow() {
		actual = append(actual, row{
			Id:      id.Read(),
			Name:    name.Read(),
			Lat:     lat.Read(),
			Desc:    desc.Read(),
			Missing: f.MissingRowKeys(),
		})
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close() returned unexpected error: %s", err)
	}
	expected := []row{
		{Id: "1", Name: "Bystra", Lat: "49.8"},
		{Id: "2", Lat: "49.9", Missing: []string{"stop_name"}},
		{Id: "3", Missing: []string{"stop_name"}},
	}
	if diff := cmp.Diff(expected, actual); diff != "" {
		t.Errorf("rows diff (-want +got):\n%s", diff)
	}
	if f.RowNumber() != 3 {
		t.Errorf("RowNumber() = %d, want 3", f.RowNumber())
	}
}

func TestFileMissingColumns(t *testing.T) {
	f, err := New(constants.StopsFile, io.NopCloser(strings.NewReader("stop_id\n1\n")))
	if err != nil {
		t.Fatalf("New() returned unexpected error: %s", err)
	}
	f.RequiredColumn("stop_name")
	f.RequiredColumn("stop_lat")
	if diff := cmp.Diff([]string{"stop_name", "stop_lat"}, f.MissingRequiredColumns()); diff != "" {
		t.Errorf("MissingRequiredColumns() diff (-want +got):\n%s", diff)
	}
}

func TestFileEmpty(t *testing.T) {
	if _, err := New(constants.StopsFile, io.NopCloser(strings.NewReader(""))); err == nil {
		t.Errorf("New() on empty content returned no error")
	}
}
