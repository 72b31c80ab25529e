package postgres

import (
	"strings"
	"testing"
)

func TestMigrationFilesSorted(t *testing.T) {
	files, err := migrationFiles()
	if err != nil {
		t.Fatalf("migrationFiles: %v", err)
	}
	if len(files) < 2 {
		t.Fatalf("got %d migrations, want at least 2", len(files))
	}
	for i, f := range files {
		if !strings.HasSuffix(f, ".sql") {
			t.Errorf("%s is not a .sql file", f)
		}
		if i > 0 && files[i-1] >= f {
			t.Errorf("migrations out of order: %s before %s", files[i-1], f)
		}
	}
	if files[0] != "001_init.sql" {
		t.Errorf("first migration = %s, want 001_init.sql", files[0])
	}
}
