package refdata

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeCSV(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("writeCSV: %v", err)
	}
	return p
}

func TestLoadMembers(t *testing.T) {
	dir := t.TempDir()
	p := writeCSV(t, dir, "speakers.csv", "corresponding_id,speaker_name,first_name,last_name,dob,dod\n"+
		"1,Mr. John Smith,John,Smith,1800-01-01,1880-01-01\n"+
		"2,Mr. No Name,Nonexistent,Missing,1800-01-01,1880-01-01\n")

	members, err := LoadMembers(p, time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("LoadMembers: %v", err)
	}
	if _, ok := members[1]; !ok {
		t.Fatalf("expected member 1 to load")
	}
	if _, ok := members[2]; ok {
		t.Fatalf("expected member 2 to be skipped (name tokens don't match)")
	}
}

func TestLoadMembers_DuplicateIDFatal(t *testing.T) {
	dir := t.TempDir()
	p := writeCSV(t, dir, "speakers.csv", "corresponding_id,speaker_name,first_name,last_name,dob,dod\n"+
		"1,Mr. John Smith,John,Smith,1800-01-01,1880-01-01\n"+
		"1,Mr. John Smith,John,Smith,1800-01-01,1880-01-01\n")

	if _, err := LoadMembers(p, time.Now()); err == nil {
		t.Fatalf("expected fatal error for duplicate member id")
	}
}

func TestLoadMembers_MissingDOBFallsBackToSentinel(t *testing.T) {
	dir := t.TempDir()
	p := writeCSV(t, dir, "speakers.csv", "corresponding_id,speaker_name,first_name,last_name,dob,dod\n"+
		"1,Mr. John Smith,John,Smith,,\n")

	members, err := LoadMembers(p, time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("LoadMembers: %v", err)
	}
	m := members[1]
	if !m.DOB.Equal(timeFromDate(1700, 1, 1)) {
		t.Errorf("DOB = %v, want sentinel start", m.DOB)
	}
	if !m.DOD.Equal(timeFromDate(2000, 1, 1)) {
		t.Errorf("DOD = %v, want process-start fallback", m.DOD)
	}
}

func timeFromDate(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func TestLoadOfficeTitlesAndHoldings(t *testing.T) {
	dir := t.TempDir()
	titlesPath := writeCSV(t, dir, "office_titles.csv", "office_id,name\n1,Lord of the Treasury\n")
	speakersPath := writeCSV(t, dir, "speakers.csv", "corresponding_id,speaker_name,first_name,last_name,dob,dod\n"+
		"5,Mr. Robert Jones,Robert,Jones,1800-01-01,1880-01-01\n")

	offices, err := LoadOfficeTitles(titlesPath)
	if err != nil {
		t.Fatalf("LoadOfficeTitles: %v", err)
	}
	if _, ok := offices[1]; !ok {
		t.Fatalf("expected office 1 to load")
	}

	members, err := LoadMembers(speakersPath, time.Now())
	if err != nil {
		t.Fatalf("LoadMembers: %v", err)
	}

	holdingsPath := writeCSV(t, dir, "officeholdings.csv", "corresponding_id,office_id,start_search,end_search\n"+
		"5,1,1850,1855\n"+ // year-only bounds, expanded by ParseSearchDate
		"99,1,1850,1855\n"+ // unknown member, skipped
		"5,42,1850,1855\n") // unknown office, skipped

	holdings, err := LoadOfficeHoldings(holdingsPath, members, offices)
	if err != nil {
		t.Fatalf("LoadOfficeHoldings: %v", err)
	}
	if len(holdings) != 1 {
		t.Fatalf("holdings = %d, want 1 (unknown member/office rows skipped)", len(holdings))
	}
	if !holdings[0].Start.Equal(timeFromDate(1850, 1, 1)) || !holdings[0].End.Equal(timeFromDate(1855, 12, 31)) {
		t.Errorf("holding window = [%v,%v], want [1850-01-01,1855-12-31]", holdings[0].Start, holdings[0].End)
	}
}

func TestLoadAliasTable(t *testing.T) {
	dir := t.TempDir()
	p := writeCSV(t, dir, "peerage.csv", "corresponding_id,real_name,alias,start_search,end_search\n"+
		"1,john smith,Viscount Palmerston,1800-01-01,1900-01-01\n"+
		",,self keyed alias,1800-01-01,1900-01-01\n")

	tbl, err := LoadAliasTable(p)
	if err != nil {
		t.Fatalf("LoadAliasTable: %v", err)
	}
	if len(tbl) != 2 {
		t.Fatalf("table rows = %d, want 2", len(tbl))
	}
	if !tbl[0].HasMember || tbl[0].CorrespondingID != 1 {
		t.Errorf("row 0 = %+v, want HasMember with id 1", tbl[0])
	}
	if tbl[1].HasMember {
		t.Errorf("row 1 = %+v, want HasMember false (self-keyed)", tbl[1])
	}
}

func TestLoadAliasTablesFromDir(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "a.csv", "corresponding_id,real_name,alias,start_search,end_search\n1,a,alias a,1800,1900\n")
	writeCSV(t, dir, "b.csv", "corresponding_id,real_name,alias,start_search,end_search\n2,b,alias b,1800,1900\n")

	tbl, err := LoadAliasTablesFromDir(dir)
	if err != nil {
		t.Fatalf("LoadAliasTablesFromDir: %v", err)
	}
	if len(tbl) != 2 {
		t.Fatalf("table rows = %d, want 2 (concatenated across files)", len(tbl))
	}
}

func TestLoadCorrections(t *testing.T) {
	dir := t.TempDir()
	p := writeCSV(t, dir, "misspellings.csv", "INCORRECT,CORRECT\nPalmerstone,palmerston\n")

	corrections, err := LoadCorrections(p)
	if err != nil {
		t.Fatalf("LoadCorrections: %v", err)
	}
	if len(corrections) != 1 || corrections[0].Incorrect != "palmerstone" || corrections[0].Correct != "palmerston" {
		t.Fatalf("corrections = %+v, want one lowercased entry", corrections)
	}
}

func TestLoadInferences(t *testing.T) {
	dir := t.TempDir()
	p := writeCSV(t, dir, "inferences.csv", "debate_id,member_id\n42,2527\n")

	inf, err := LoadInferences(p)
	if err != nil {
		t.Fatalf("LoadInferences: %v", err)
	}
	if inf[42] != 2527 {
		t.Fatalf("inferences[42] = %d, want 2527", inf[42])
	}
}

func TestLoadIgnoredSet(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "non-mps")
	if err := os.Mkdir(sub, 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeCSV(t, sub, "a.csv", "non_mps\nThe Speaker\n")
	writeCSV(t, sub, "b.csv", "non_mps\nHear Hear\n")

	ignored, err := LoadIgnoredSet(sub)
	if err != nil {
		t.Fatalf("LoadIgnoredSet: %v", err)
	}
	if _, ok := ignored["the speaker"]; !ok {
		t.Errorf("expected ignored set to contain lowercased 'the speaker'")
	}
	if _, ok := ignored["hear hear"]; !ok {
		t.Errorf("expected ignored set to contain lowercased 'hear hear'")
	}
}
