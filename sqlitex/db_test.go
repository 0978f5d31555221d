package sqlitex

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/mazzegi/docfacade/testx"
)

func TestDSN(t *testing.T) {
	tx := testx.NewTx(t)
	pragmas := map[string]string{"journal_mode": "WAL", "busy_timeout": "5000"}
	tx.AssertEqual("file:x.db?_journal_mode=WAL&_busy_timeout=5000&mode=ro", dsn("x.db", DriverCGo, pragmas, "mode=ro"))
	tx.AssertEqual("file:x.db?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", dsn("x.db", DriverPure, pragmas))

	d, err := ParseDriver("")
	tx.AssertNoErr(err)
	tx.AssertEqual(DriverCGo, d)
	_, err = ParseDriver("postgres")
	tx.AssertErr(err)
}

func TestReadWrite(t *testing.T) {
	for i, driver := range []Driver{DriverCGo, DriverPure} {
		t.Run(fmt.Sprintf("test_%02d", i), func(t *testing.T) {
			tx := testx.NewTx(t)
			db, err := NewDBWithDriver(filepath.Join(t.TempDir(), "test.sqlite"), driver)
			tx.AssertNoErr(err)
			defer db.Close()

			_, err = db.Exec(`CREATE TABLE kv (k TEXT PRIMARY KEY, v TEXT);`)
			tx.AssertNoErr(err)
			_, err = db.Exec(`INSERT INTO kv (k, v) VALUES (?, ?);`, "a", "b")
			tx.AssertNoErr(err)

			var v string
			tx.AssertNoErr(db.QueryRow(`SELECT v FROM kv WHERE k = ?;`, "a").Scan(&v))
			tx.AssertEqual("b", v)

			_, err = db.reader.Exec(`INSERT INTO kv (k, v) VALUES (?, ?);`, "c", "d")
			tx.AssertErr(err)
		})
	}
}
