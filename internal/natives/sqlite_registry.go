package natives

import (
	"database/sql"
	"fmt"

	"github.com/glint-lang/glint/internal/ast"

	_ "modernc.org/sqlite"
)

// SQLiteRegistry wraps a *sql.DB opened against the pure-Go
// modernc.org/sqlite driver. On construction it creates the
// native_functions/native_args schema if absent, seeds it from the
// same built-in table MapRegistry uses, and serves FindNative via
// query — caching results in memory after first lookup so repeated
// parses of the same file don't re-query per identifier
// (SPEC_FULL.md §4.J).
type SQLiteRegistry struct {
	db    *sql.DB
	cache map[string][]*NativeFun
}

// OpenSQLiteRegistry opens (or creates) a SQLite database at path and
// returns a registry backed by it. Pass ":memory:" for an ephemeral,
// still schema-backed registry suitable for tests that want to
// exercise the SQL path without touching disk.
func OpenSQLiteRegistry(path string) (*SQLiteRegistry, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open native registry: %w", err)
	}
	r := &SQLiteRegistry{db: db, cache: make(map[string][]*NativeFun)}
	if err := r.init(); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func (r *SQLiteRegistry) init() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS native_functions (
			id   INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			arity INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS native_args (
			function_id INTEGER NOT NULL REFERENCES native_functions(id),
			position    INTEGER NOT NULL,
			name        TEXT NOT NULL,
			type_name   TEXT NOT NULL,
			nilable     INTEGER NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("create native registry schema: %w", err)
	}

	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM native_functions`).Scan(&count); err != nil {
		return fmt.Errorf("count native_functions: %w", err)
	}
	if count > 0 {
		return nil
	}
	return r.seed()
}

func (r *SQLiteRegistry) seed() error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for name, fns := range builtinSeed() {
		for _, fn := range fns {
			res, err := tx.Exec(`INSERT INTO native_functions (name, arity) VALUES (?, ?)`, name, fn.Arity())
			if err != nil {
				return fmt.Errorf("seed native_functions %s: %w", name, err)
			}
			fid, err := res.LastInsertId()
			if err != nil {
				return err
			}
			for i, a := range fn.Args {
				typeName := typeNodeName(a.Type)
				nilable := 0
				if a.Nilable {
					nilable = 1
				}
				if _, err := tx.Exec(`INSERT INTO native_args (function_id, position, name, type_name, nilable) VALUES (?, ?, ?, ?, ?)`,
					fid, i, a.Name, typeName, nilable); err != nil {
					return fmt.Errorf("seed native_args %s: %w", name, err)
				}
			}
		}
	}
	return tx.Commit()
}

func typeNodeName(t ast.TypeNode) string {
	switch n := t.(type) {
	case *ast.SimpleType:
		return n.Name
	case *ast.ListType:
		return "[" + typeNodeName(n.Elem) + "]"
	default:
		return "any"
	}
}

// FindNative queries the schema on first lookup and caches the
// result; subsequent lookups for the same name are served from
// memory.
func (r *SQLiteRegistry) FindNative(name string) ([]*NativeFun, bool) {
	if fns, ok := r.cache[name]; ok {
		return fns, len(fns) > 0
	}

	rows, err := r.db.Query(`SELECT id, arity FROM native_functions WHERE name = ?`, name)
	if err != nil {
		return nil, false
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		var arity int
		if err := rows.Scan(&id, &arity); err != nil {
			continue
		}
		ids = append(ids, id)
	}
	// Close before loading args: a nested query while rows are open
	// takes a second pool connection, which for ":memory:" is a
	// separate, empty database.
	rows.Close()

	var fns []*NativeFun
	for _, id := range ids {
		args, err := r.loadArgs(id)
		if err != nil {
			continue
		}
		fns = append(fns, &NativeFun{Name: name, Args: args})
	}

	r.cache[name] = fns
	return fns, len(fns) > 0
}

func (r *SQLiteRegistry) loadArgs(functionID int64) ([]NativeArg, error) {
	rows, err := r.db.Query(`SELECT name, type_name, nilable FROM native_args WHERE function_id = ? ORDER BY position`, functionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var args []NativeArg
	for rows.Next() {
		var name, typeName string
		var nilable int
		if err := rows.Scan(&name, &typeName, &nilable); err != nil {
			return nil, err
		}
		args = append(args, NativeArg{Name: name, Type: &ast.SimpleType{Name: typeName}, Nilable: nilable != 0})
	}
	return args, nil
}

// Close releases the underlying database handle.
func (r *SQLiteRegistry) Close() error { return r.db.Close() }
