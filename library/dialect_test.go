package library

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestDialectFor(t *testing.T) {
	for _, driver := range []string{"", "sqlite", "sqlite3"} {
		d, err := dialectFor(driver)
		if err != nil || d.driver != "sqlite3" {
			t.Fatalf("dialectFor(%q) = %q, %v", driver, d.driver, err)
		}
		if d.lockSuffix != "" {
			t.Fatalf("sqlite has no row locks, got suffix %q", d.lockSuffix)
		}
	}

	d, err := dialectFor("mysql")
	if err != nil {
		t.Fatalf("mysql: %v", err)
	}
	if d.lockSuffix != " FOR UPDATE" {
		t.Fatalf("mysql lock suffix = %q", d.lockSuffix)
	}
	for _, stmt := range d.schema {
		if strings.HasPrefix(strings.TrimSpace(stmt), "CREATE TABLE") && !strings.Contains(stmt, "ENGINE=InnoDB") {
			t.Fatalf("mysql table without InnoDB: %s", stmt)
		}
	}

	if _, err := dialectFor("oracle"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("want ErrInvalidArgument, got %v", err)
	}
}

func TestSchemaTablesMatchAcrossDialects(t *testing.T) {
	tables := func(d dialect) []string {
		var out []string
		for _, stmt := range d.schema {
			if f := strings.Fields(stmt); len(f) > 5 && f[0] == "CREATE" && f[1] == "TABLE" {
				out = append(out, f[5])
			}
		}
		return out
	}
	lite, my := tables(sqliteDialect), tables(mysqlDialect)
	if strings.Join(lite, ",") != strings.Join(my, ",") {
		t.Fatalf("table sets differ: sqlite %v, mysql %v", lite, my)
	}
	if len(lite) != 4 {
		t.Fatalf("want 4 tables, got %v", lite)
	}
}

func TestSQLiteLowerFoldsUnicode(t *testing.T) {
	db := tempDB(t)
	var got string
	if err := db.db.GetContext(context.Background(), &got, `SELECT lower(?)`, "ÉMILE Ø Straße"); err != nil {
		t.Fatalf("lower: %v", err)
	}
	if got != "émile ø straße" {
		t.Fatalf("lower = %q", got)
	}
}
