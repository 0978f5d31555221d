package sqlx

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/mazzegi/docfacade/testx"
)

func setupDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite", ":memory:")
	testx.AssertNoErr(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(`CREATE TABLE test (string TEXT, int INTEGER, real REAL);`)
	testx.AssertNoErr(t, err)
	return db
}

func countRows(db *sql.DB) (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM test;`).Scan(&n)
	return n, err
}

func TestTransact(t *testing.T) {
	tx := testx.NewTx(t)
	db := setupDB(t)

	err := Transact(db, func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO test (string,int,real) VALUES (?,?,?);`, "a", 1, 1.5)
		return err
	})
	tx.AssertNoErr(err)

	err = TransactContext(context.Background(), db, func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO test (string,int,real) VALUES (?,?,?);`, "b", 2, 2.5)
		if err != nil {
			return err
		}
		return fmt.Errorf("abort")
	})
	tx.AssertErr(err)

	n, err := countRows(db)
	tx.AssertNoErr(err)
	tx.AssertEqual(1, n)
}
