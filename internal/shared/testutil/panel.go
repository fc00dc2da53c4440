package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"volexplorer/internal/panel"
)

// SamplePanelCSV is a small panel: three time ids, three instruments, one gap.
//
//	time_id  0      1      2
//	5        0.004  0.010  0.002
//	11       0.006  NA     0.002
//	16       0.008  0.020  0.005
const SamplePanelCSV = "time_id,0,1,2\n" +
	"5,0.004,0.010,0.002\n" +
	"11,0.006,NA,0.002\n" +
	"16,0.008,0.020,0.005\n"

// LoadPanel parses csv into a dataset, failing t on error
func LoadPanel(t testing.TB, csv string) *panel.Dataset {
	t.Helper()
	ds, err := panel.ReadCSV(strings.NewReader(csv), panel.DefaultLoadOptions())
	if err != nil {
		t.Fatalf("load panel fixture: %v", err)
	}
	return ds
}

// WritePanelFile writes content to a file named name in a temp dir and returns its path
func WritePanelFile(t testing.TB, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write panel fixture: %v", err)
	}
	return path
}
