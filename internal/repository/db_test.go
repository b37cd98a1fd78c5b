package repository

import (
	"reflect"
	"testing"
)

func TestWhereBuilder(t *testing.T) {
	var w where
	w.add("role = ?", "ADMIN")
	w.addSearch("  ann_%  ", "name", "email")
	w.add("created_at BETWEEN ? AND ?", 1, 2)

	want := " WHERE role = $1 AND (name ILIKE $2 OR email ILIKE $2) AND created_at BETWEEN $3 AND $4"
	if got := w.sql(); got != want {
		t.Fatalf("sql() = %q\nwant %q", got, want)
	}
	if !reflect.DeepEqual(w.args, []any{"ADMIN", `%ann\_\%%`, 1, 2}) {
		t.Fatalf("args = %#v", w.args)
	}

	suffix, args := w.page(10, 20)
	if suffix != " LIMIT $5 OFFSET $6" || len(args) != 6 || len(w.args) != 4 {
		t.Fatalf("page() = %q %v", suffix, args)
	}
}

func TestWhereBuilderEmpty(t *testing.T) {
	var w where
	w.addSearch("   ", "name")
	if w.sql() != "" || len(w.args) != 0 {
		t.Fatalf("empty builder produced %q %v", w.sql(), w.args)
	}
}
