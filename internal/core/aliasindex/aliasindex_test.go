package aliasindex

import (
	"testing"
	"time"

	"hansard-resolve/internal/core/catalog"
)

func date(y, m, d int) time.Time { return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC) }

func TestTable_Containment(t *testing.T) {
	tbl := Table{
		{CorrespondingID: 1, HasMember: true, Alias: "viscount palmerston", Start: date(1800, 1, 1), End: date(1900, 1, 1)},
		{CorrespondingID: 2, HasMember: true, Alias: "earl of derby", Start: date(1800, 1, 1), End: date(1900, 1, 1)},
	}
	got := tbl.Containment("palmerston", date(1850, 1, 1))
	if len(got) != 1 || got[0].CorrespondingID != 1 {
		t.Fatalf("Containment = %+v, want single palmerston row", got)
	}
}

func TestTable_ContainmentRespectsWindow(t *testing.T) {
	tbl := Table{
		{CorrespondingID: 1, HasMember: true, Alias: "viscount palmerston", Start: date(1800, 1, 1), End: date(1855, 1, 1)},
	}
	if got := tbl.Containment("palmerston", date(1855, 1, 1)); len(got) != 0 {
		t.Fatalf("expected end bound to be exclusive, got %+v", got)
	}
}

func TestTable_Fuzzy(t *testing.T) {
	tbl := Table{
		{CorrespondingID: 1, HasMember: true, Alias: "mr smith", Start: date(1800, 1, 1), End: date(1900, 1, 1)},
	}
	got := tbl.Fuzzy("mr smyth", date(1850, 1, 1))
	if len(got) != 1 {
		t.Fatalf("Fuzzy = %+v, want one match within distance two", got)
	}
}

func TestDedupeByMember_SortedAscending(t *testing.T) {
	rows := []Row{
		{CorrespondingID: 5, HasMember: true},
		{CorrespondingID: 2, HasMember: true},
		{CorrespondingID: 5, HasMember: true},
		{HasMember: false},
	}
	got := DedupeByMember(rows)
	want := []int{2, 5}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("DedupeByMember = %v, want %v", got, want)
	}
}

func TestIndexes_IndexMember(t *testing.T) {
	ix := NewIndexes()
	m, err := catalog.NewMember(1, "Mr. John Smith", "John", "Smith", date(1800, 1, 1), date(1870, 1, 1))
	if err != nil {
		t.Fatalf("NewMember: %v", err)
	}
	ix.IndexMember(m)
	if ids, ok := ix.AliasMap["mr john smith"]; !ok || ids[0] != 1 {
		t.Fatalf("expected alias map entry for mr john smith, got %v", ix.AliasMap["mr john smith"])
	}
	if ids, ok := ix.EditDistanceMap["mr smith"]; !ok || ids[0] != 1 {
		t.Fatalf("expected edit-distance map entry for mr smith, got %v", ix.EditDistanceMap["mr smith"])
	}
}

func TestIndexes_MatchOffice(t *testing.T) {
	ix := NewIndexes()
	o := catalog.NewOffice(1, "Lord of the Treasury")
	ix.Offices[1] = o
	if got := ix.MatchOffice("lord treasury"); got == nil || got.ID != 1 {
		t.Fatalf("MatchOffice failed to find office by subsequence alias")
	}
	if got := ix.MatchOffice("nonexistent office"); got != nil {
		t.Fatalf("MatchOffice matched unrelated string")
	}
}
