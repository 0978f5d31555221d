package sqlitex

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Driver selects the sqlite implementation: "sqlite3" is the cgo driver, "sqlite" the pure-go one.
type Driver string

const (
	DriverCGo  Driver = "sqlite3"
	DriverPure Driver = "sqlite"
)

func ParseDriver(s string) (Driver, error) {
	switch Driver(strings.TrimSpace(s)) {
	case "", DriverCGo:
		return DriverCGo, nil
	case DriverPure:
		return DriverPure, nil
	default:
		return "", fmt.Errorf("unknown sqlite driver %q", s)
	}
}

func NewDB(file string) (*DB, error) {
	return NewDBWithDriver(file, DriverCGo)
}

func NewDBWithDriver(file string, driver Driver) (*DB, error) {
	writer, err := setupWriter(file, driver)
	if err != nil {
		return nil, fmt.Errorf("setup-writer: %w", err)
	}
	reader, err := setupReader(file, driver)
	if err != nil {
		writer.Close()
		return nil, fmt.Errorf("setup-reader: %w", err)
	}
	return &DB{
		file:   file,
		driver: driver,
		writer: writer,
		reader: reader,
	}, nil
}

type DB struct {
	file   string
	driver Driver
	writer *sql.DB
	reader *sql.DB
}

// the pure-go driver takes pragmas as _pragma=name(value)
func dsn(file string, driver Driver, pragmas map[string]string, extra ...string) string {
	var params []string
	for _, name := range []string{"journal_mode", "synchronous", "busy_timeout"} {
		v, ok := pragmas[name]
		if !ok {
			continue
		}
		switch driver {
		case DriverPure:
			params = append(params, fmt.Sprintf("_pragma=%s(%s)", name, v))
		default:
			params = append(params, fmt.Sprintf("_%s=%s", name, v))
		}
	}
	params = append(params, extra...)
	return fmt.Sprintf("file:%s?%s", file, strings.Join(params, "&"))
}

func setupWriter(file string, driver Driver) (*sql.DB, error) {
	pragmas := map[string]string{
		"journal_mode": "WAL",
		"synchronous":  "NORMAL",
		"busy_timeout": "5000",
	}
	sdb, err := sql.Open(string(driver), dsn(file, driver, pragmas, "_txlock=immediate"))
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", file, err)
	}
	sdb.SetMaxOpenConns(1)
	return sdb, nil
}

func setupReader(file string, driver Driver) (*sql.DB, error) {
	pragmas := map[string]string{
		"busy_timeout": "5000",
	}
	sdb, err := sql.Open(string(driver), dsn(file, driver, pragmas, "mode=ro"))
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", file, err)
	}
	sdb.SetMaxOpenConns(5000)
	return sdb, nil
}

func (db *DB) File() string {
	return db.file
}

func (db *DB) Driver() Driver {
	return db.driver
}

func (db *DB) Close() error {
	rerr := db.reader.Close()
	werr := db.writer.Close()
	if werr != nil {
		return werr
	}
	return rerr
}

func (db *DB) Begin() (*sql.Tx, error) {
	return db.writer.BeginTx(context.Background(), nil)
}

func (db *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	return db.writer.BeginTx(ctx, opts)
}

func (db *DB) Exec(query string, args ...any) (sql.Result, error) {
	return db.writer.ExecContext(context.Background(), query, args...)
}

func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.writer.ExecContext(ctx, query, args...)
}

func (db *DB) Query(query string, args ...any) (*sql.Rows, error) {
	return db.reader.QueryContext(context.Background(), query, args...)
}

func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.reader.QueryContext(ctx, query, args...)
}

func (db *DB) QueryRow(query string, args ...any) *sql.Row {
	return db.reader.QueryRowContext(context.Background(), query, args...)
}

func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return db.reader.QueryRowContext(ctx, query, args...)
}

func (db *DB) Stats() (writerStats, readerStats sql.DBStats) {
	return db.writer.Stats(), db.reader.Stats()
}
