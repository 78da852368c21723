package assign

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/laccore/coreid/internal/table"
)

const runData = "SECT NUM,Section Depth,Den1\n" +
	",cm,g/cc\n" +
	"1,0.5,1.61\n" +
	"1,1.5,1.62\n" +
	"2,0.5,1.70\n" +
	"1,0.5,1.55\n" +
	"3,0.5,1.40\n"

func writeFixture(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestRunWritesMatchedAndUnmatched(t *testing.T) {
	dir := t.TempDir()
	in := writeFixture(t, dir, "YLAKE_MSCL.csv", runData)
	cl := writeFixture(t, dir, "corelist.csv", "1,PROJ-1A-1P-1-A\n2,PROJ-1A-1P-2-A\n1,PROJ-2A-1P-1-A\n")

	sum, err := Run(Files{Input: in, CoreList: cl}, DefaultOptions(), table.WriteOptions{}, table.ReadOptions{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.RunID == "" {
		t.Fatalf("expected run id")
	}
	if sum.Stats.Matched != 4 || sum.Stats.Unmatched != 1 {
		t.Fatalf("unexpected stats: %+v", sum.Stats)
	}
	wantMatched := filepath.Join(dir, "YLAKE_MSCL_coreID.csv")
	wantUnmatched := filepath.Join(dir, "YLAKE_MSCL_unmatched.csv")
	if sum.MatchedFile != wantMatched || sum.UnmatchedFile != wantUnmatched {
		t.Fatalf("unexpected output names: %s, %s", sum.MatchedFile, sum.UnmatchedFile)
	}

	got, err := os.ReadFile(wantMatched)
	if err != nil {
		t.Fatalf("read matched: %v", err)
	}
	want := "SECT NUM,Section Depth,Den1\n" +
		",cm,g/cc\n" +
		"PROJ-1A-1P-1-A,0.5,1.61\n" +
		"PROJ-1A-1P-1-A,1.5,1.62\n" +
		"PROJ-1A-1P-2-A,0.5,1.70\n" +
		"PROJ-2A-1P-1-A,0.5,1.55\n"
	if string(got) != want {
		t.Fatalf("matched output:\n%s\nwant:\n%s", got, want)
	}

	got, err = os.ReadFile(wantUnmatched)
	if err != nil {
		t.Fatalf("read unmatched: %v", err)
	}
	want = "SECT NUM,Section Depth,Den1,Part_Section\n" +
		",cm,g/cc,\n" +
		"3,0.5,1.40,2_3\n"
	if string(got) != want {
		t.Fatalf("unmatched output:\n%s\nwant:\n%s", got, want)
	}
}

func TestRunSkipsUnmatchedFileWhenAllMatch(t *testing.T) {
	dir := t.TempDir()
	in := writeFixture(t, dir, "data.csv", runData)
	cl := writeFixture(t, dir, "list.csv", "1,A\n2,B\n1,C\n3,D\n")

	sum, err := Run(Files{Input: in, CoreList: cl}, DefaultOptions(), table.WriteOptions{BOM: true}, table.ReadOptions{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.UnmatchedFile != "" {
		t.Fatalf("unexpected unmatched file %s", sum.UnmatchedFile)
	}
	if _, err := os.Stat(filepath.Join(dir, "data_unmatched.csv")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("unmatched file should not exist: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dir, "data_coreID.csv"))
	if err != nil {
		t.Fatalf("read matched: %v", err)
	}
	if !strings.HasPrefix(string(got), "\ufeffSECT NUM") {
		t.Fatalf("expected BOM-prefixed output, got %q", got[:12])
	}
}

func TestRunLeavesNoOutputOnFailure(t *testing.T) {
	dir := t.TempDir()
	in := writeFixture(t, dir, "bad.csv", runData+"x,0.5,1.0\n")
	cl := writeFixture(t, dir, "corelist.csv", "1,A\n")

	_, err := Run(Files{Input: in, CoreList: cl}, DefaultOptions(), table.WriteOptions{}, table.ReadOptions{})
	if !errors.Is(err, ErrMalformedRow) {
		t.Fatalf("expected malformed row error, got %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 2 {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("expected only the inputs, found %v", names)
	}
}

func TestRunMissingCoreList(t *testing.T) {
	dir := t.TempDir()
	in := writeFixture(t, dir, "data.csv", runData)

	_, err := Run(Files{Input: in, CoreList: filepath.Join(dir, "nope.csv")}, DefaultOptions(), table.WriteOptions{}, table.ReadOptions{})
	var lf *LookupFileError
	if !errors.As(err, &lf) {
		t.Fatalf("expected LookupFileError, got %v", err)
	}
	if lf.Hint == "" || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error with hint, got %+v", lf)
	}
}

func TestRunRejectsOverwritingInput(t *testing.T) {
	dir := t.TempDir()
	in := writeFixture(t, dir, "data.csv", runData)
	cl := writeFixture(t, dir, "corelist.csv", "1,A\n")

	_, err := Run(Files{Input: in, CoreList: cl, Matched: in}, DefaultOptions(), table.WriteOptions{}, table.ReadOptions{})
	if !errors.Is(err, ErrInvalidOptions) {
		t.Fatalf("expected options error, got %v", err)
	}
	got, _ := os.ReadFile(in)
	if string(got) != runData {
		t.Fatalf("input was modified")
	}
}

func TestDefaultOutputNames(t *testing.T) {
	m, u := DefaultOutputNames(filepath.Join("runs", "YLAKE_MSCL.csv"), "", "")
	if m != filepath.Join("runs", "YLAKE_MSCL_coreID.csv") || u != filepath.Join("runs", "YLAKE_MSCL_unmatched.csv") {
		t.Fatalf("unexpected names %s %s", m, u)
	}
	m, u = DefaultOutputNames("DCH.xlsx", "_ids.csv", "_rest.csv")
	if m != "DCH_ids.csv" || u != "DCH_rest.csv" {
		t.Fatalf("unexpected names %s %s", m, u)
	}
}

func TestResolveCoreList(t *testing.T) {
	dir := t.TempDir()
	if got, err := ResolveCoreList("given.csv", ""); err != nil || got != "given.csv" {
		t.Fatalf("explicit path: %s, %v", got, err)
	}
	fallback := writeFixture(t, dir, "corelist.csv", "1,A\n")
	if got, err := ResolveCoreList("", fallback); err != nil || got != fallback {
		t.Fatalf("fallback path: %s, %v", got, err)
	}
	_, err := ResolveCoreList("", filepath.Join(dir, "missing.csv"))
	var lf *LookupFileError
	if !errors.As(err, &lf) || !strings.Contains(lf.Hint, "sectionNumber,coreID") {
		t.Fatalf("expected hint-carrying error, got %v", err)
	}
}

func TestRunTabDataWithCommaCoreList(t *testing.T) {
	dir := t.TempDir()
	data := strings.ReplaceAll(runData, ",", "\t")
	in := writeFixture(t, dir, "YLAKE_MSCL.txt", data)
	cl := writeFixture(t, dir, "corelist.csv", "1,A\n2,B\n1,C\n3,D\n")

	sum, err := Run(Files{Input: in, CoreList: cl}, DefaultOptions(), table.WriteOptions{}, table.ReadOptions{Delimiter: '\t'})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Stats.Matched != 5 || sum.CoreEntries != 4 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	got, err := os.ReadFile(filepath.Join(dir, "YLAKE_MSCL_coreID.csv"))
	if err != nil {
		t.Fatalf("read matched: %v", err)
	}
	if !strings.Contains(string(got), "C,0.5,1.55\n") {
		t.Fatalf("expected comma output with core IDs, got:\n%s", got)
	}
}

func TestRunRejectsOverwritingCoreList(t *testing.T) {
	dir := t.TempDir()
	in := writeFixture(t, dir, "data.csv", runData)
	const list = "1,A\n"
	cl := writeFixture(t, dir, "corelist.csv", list)

	for _, files := range []Files{
		{Input: in, CoreList: cl, Unmatched: cl},
		{Input: in, CoreList: cl, Matched: filepath.Join(dir, ".", "corelist.csv")},
	} {
		_, err := Run(files, DefaultOptions(), table.WriteOptions{}, table.ReadOptions{})
		if !errors.Is(err, ErrInvalidOptions) || !strings.Contains(err.Error(), "core list") {
			t.Fatalf("expected core list overwrite to be rejected, got %v", err)
		}
	}
	got, _ := os.ReadFile(cl)
	if string(got) != list {
		t.Fatalf("core list was modified: %q", got)
	}
}

func TestRunRemovesStaleUnmatchedFile(t *testing.T) {
	dir := t.TempDir()
	in := writeFixture(t, dir, "data.csv", runData)
	cl := writeFixture(t, dir, "corelist.csv", "1,A\n2,B\n1,C\n")
	stale := filepath.Join(dir, "data_unmatched.csv")

	first, err := Run(Files{Input: in, CoreList: cl}, DefaultOptions(), table.WriteOptions{}, table.ReadOptions{})
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.UnmatchedFile != stale || first.RemovedFile != "" {
		t.Fatalf("unexpected first summary: %+v", first)
	}

	writeFixture(t, dir, "corelist.csv", "1,A\n2,B\n1,C\n3,D\n")
	second, err := Run(Files{Input: in, CoreList: cl}, DefaultOptions(), table.WriteOptions{}, table.ReadOptions{})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Stats.Unmatched != 0 || second.RemovedFile != stale {
		t.Fatalf("unexpected second summary: %+v", second)
	}
	if _, err := os.Stat(stale); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("stale unmatched file still present: %v", err)
	}
}

func TestResolveCoreListExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	want := writeFixture(t, home, "YLAKE.csv", "1,A\n")

	got, err := ResolveCoreList("", "~/YLAKE.csv")
	if err != nil || got != want {
		t.Fatalf("ResolveCoreList(~/YLAKE.csv) = %s, %v; want %s", got, err, want)
	}
}
