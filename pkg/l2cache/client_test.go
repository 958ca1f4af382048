package l2cache

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"testing"
)

type fakeAPI struct {
	response  string
	lastPath  string
	lastQuery url.Values
	err       error
}

func (f *fakeAPI) GetJSON(_ context.Context, path string, query url.Values, v any) error {
	if f.err != nil {
		return f.err
	}
	f.lastPath = path
	f.lastQuery = query
	return json.Unmarshal([]byte(f.response), v)
}

func TestGetL2Data(t *testing.T) {
	api := &fakeAPI{response: `{
		"161514754013855873": {"rep_coord_nm": [100.0, 200.0, 300.0], "size_nm3": 5120.0},
		"161514754013855874": {"rep_coord_nm": null}
	}`}
	c := New(api, "minnie3_v1")

	got, err := c.GetL2Data(context.Background(), []uint64{161514754013855873, 161514754013855874}, []string{"rep_coord_nm", "size_nm3"})
	if err != nil {
		t.Fatalf("GetL2Data() error = %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("GetL2Data() returned %d entries, want 2", len(got))
	}

	attrs := got[161514754013855873]
	if len(attrs.RepCoordNM) != 3 || attrs.RepCoordNM[0] != 100.0 {
		t.Errorf("RepCoordNM = %v, want [100 200 300]", attrs.RepCoordNM)
	}
	if attrs.SizeNM3 == nil || *attrs.SizeNM3 != 5120.0 {
		t.Errorf("SizeNM3 = %v, want 5120", attrs.SizeNM3)
	}

	if api.lastPath != "/l2cache/api/v1/table/minnie3_v1/attributes" {
		t.Errorf("path = %q", api.lastPath)
	}
	if !strings.Contains(api.lastQuery.Get("l2_ids"), "161514754013855873") {
		t.Errorf("l2_ids query = %q, want requested ids", api.lastQuery.Get("l2_ids"))
	}
	if api.lastQuery.Get("attributes") != "rep_coord_nm,size_nm3" {
		t.Errorf("attributes query = %q", api.lastQuery.Get("attributes"))
	}
}

func TestGetL2Data_BadIDKey(t *testing.T) {
	api := &fakeAPI{response: `{"not-a-number": {}}`}
	c := New(api, "minnie3_v1")

	if _, err := c.GetL2Data(context.Background(), []uint64{1}, nil); err == nil {
		t.Error("GetL2Data() should fail on a non-numeric response key")
	}
}

func TestGetL2Data_PropagatesError(t *testing.T) {
	wantErr := errors.New("service down")
	c := New(&fakeAPI{err: wantErr}, "minnie3_v1")

	_, err := c.GetL2Data(context.Background(), []uint64{1}, nil)
	if !errors.Is(err, wantErr) {
		t.Errorf("GetL2Data() error = %v, want wrapped %v", err, wantErr)
	}
}

func TestTabulate(t *testing.T) {
	size := 42.0
	data := map[uint64]Attributes{
		20: {RepCoordNM: []float64{4, 5, 6}},
		10: {RepCoordNM: []float64{1, 2, 3}, SizeNM3: &size},
		30: {}, // no representative coordinate
	}

	entries := Tabulate(data)

	if len(entries) != 3 {
		t.Fatalf("Tabulate() returned %d entries, want 3", len(entries))
	}

	// Sorted by L2 ID
	if entries[0].L2ID != 10 || entries[1].L2ID != 20 || entries[2].L2ID != 30 {
		t.Errorf("entries not sorted by id: %d, %d, %d", entries[0].L2ID, entries[1].L2ID, entries[2].L2ID)
	}

	// Coordinate unpacking
	if entries[0].X == nil || *entries[0].X != 1 || *entries[0].Y != 2 || *entries[0].Z != 3 {
		t.Errorf("entry 10 coords = (%v, %v, %v), want (1, 2, 3)", entries[0].X, entries[0].Y, entries[0].Z)
	}

	// Missing coordinate leaves columns nil
	if entries[2].X != nil || entries[2].Y != nil || entries[2].Z != nil {
		t.Error("entry 30 coords should be nil when rep_coord_nm is absent")
	}

	if entries[0].SizeNM3 == nil || *entries[0].SizeNM3 != 42.0 {
		t.Errorf("entry 10 SizeNM3 = %v, want 42", entries[0].SizeNM3)
	}
}

func TestTabulate_Empty(t *testing.T) {
	if entries := Tabulate(nil); len(entries) != 0 {
		t.Errorf("Tabulate(nil) = %v, want empty", entries)
	}
}
