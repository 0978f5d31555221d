package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mazzegi/docfacade/jsonpath"
	"github.com/mazzegi/docfacade/query"
	"github.com/mazzegi/docfacade/sqlx"
	"github.com/mazzegi/docfacade/store"
)

type docRow struct {
	Collection string    `sql:"collection"`
	ID         string    `sql:"id"`
	UpdatedOn  time.Time `sql:"updated_on"`
	Value      string    `sql:"value"`
}

func (r docRow) snapshot() (store.DocumentSnapshot, error) {
	var data store.Fields
	err := json.Unmarshal([]byte(r.Value), &data)
	if err != nil {
		return store.DocumentSnapshot{}, fmt.Errorf("json.unmarshal %s/%s: %w", r.Collection, r.ID, err)
	}
	if data == nil {
		data = store.Fields{}
	}
	return store.DocumentSnapshot{
		Ref:        store.DocRef{Collection: r.Collection, ID: r.ID},
		Exists:     true,
		Data:       data,
		UpdateTime: r.UpdatedOn,
	}, nil
}

func internal(op string, err error) error {
	if store.CodeOf(err) != store.CodeInternal {
		return err
	}
	return store.Errorf(store.CodeInternal, "%s: %v", op, err)
}

func (s *Store) loadRows(ctx context.Context, where string, args ...any) ([]store.DocumentSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT collection, id, updated_on, value FROM documents WHERE `+where+` ORDER BY collection ASC, id ASC;`, args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()
	rs, err := sqlx.Collect[docRow](rows, nil)
	if err != nil {
		return nil, fmt.Errorf("collect: %w", err)
	}
	docs := make([]store.DocumentSnapshot, 0, len(rs))
	for _, row := range rs {
		doc, err := row.snapshot()
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *Store) RunQuery(ctx context.Context, q store.QueryDesc) (store.QuerySnapshot, error) {
	var docs []store.DocumentSnapshot
	var err error
	if q.Group {
		if err := (query.Spec{Collection: q.Path}).ValidateGroup(); err != nil {
			return store.QuerySnapshot{}, store.Errorf(store.CodeInvalidArgument, "%v", err)
		}
		docs, err = s.loadRows(ctx, `grp = ?`, q.Path)
	} else {
		if err := query.ValidateCollectionPath(q.Path); err != nil {
			return store.QuerySnapshot{}, store.Errorf(store.CodeInvalidArgument, "%v", err)
		}
		docs, err = s.loadRows(ctx, `collection = ?`, q.Path)
	}
	if err != nil {
		return store.QuerySnapshot{}, internal("run-query", err)
	}
	docs, err = execute(docs, q.Steps)
	if err != nil {
		return store.QuerySnapshot{}, err
	}
	return store.NewQuerySnapshot(docs), nil
}

func (s *Store) GetDoc(ctx context.Context, ref store.DocRef) (store.DocumentSnapshot, error) {
	if err := ref.Validate(); err != nil {
		return store.DocumentSnapshot{}, err
	}
	docs, err := s.loadRows(ctx, `collection = ? AND id = ?`, ref.Collection, ref.ID)
	if err != nil {
		return store.DocumentSnapshot{}, internal("get-doc", err)
	}
	if len(docs) == 0 {
		return store.DocumentSnapshot{Ref: ref, Exists: false}, nil
	}
	return docs[0], nil
}

func getTx(tx *sql.Tx, ref store.DocRef) (store.Fields, bool, error) {
	var value string
	err := tx.QueryRow(`SELECT value FROM documents WHERE collection = ? AND id = ?;`, ref.Collection, ref.ID).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select value: %w", err)
	}
	var data store.Fields
	err = json.Unmarshal([]byte(value), &data)
	if err != nil {
		return nil, false, fmt.Errorf("json.unmarshal: %w", err)
	}
	if data == nil {
		data = store.Fields{}
	}
	return data, true, nil
}

func putTx(tx *sql.Tx, ref store.DocRef, data store.Fields) error {
	value, err := json.Marshal(data)
	if err != nil {
		return store.Errorf(store.CodeInvalidArgument, "document %s is not json: %v", ref, err)
	}
	_, err = tx.Exec(`
		INSERT INTO documents (collection, id, grp, updated_on, value) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (collection, id) DO UPDATE SET updated_on = excluded.updated_on, value = excluded.value;`,
		ref.Collection, ref.ID, ref.Group(), time.Now().UTC().Format(time.RFC3339Nano), string(value))
	if err != nil {
		return fmt.Errorf("upsert %s: %w", ref, err)
	}
	return nil
}

func (s *Store) write(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	err := sqlx.TransactContext(ctx, s.db, fn)
	if err != nil {
		return internal(op, err)
	}
	s.publisher.Publish()
	return nil
}

// stripDeleteFields removes the delete sentinel from a merge payload and returns the paths
// which have to be deleted from the target.
func stripDeleteFields(prefix string, m map[string]any) []string {
	var paths []string
	for k, v := range m {
		path := k
		if prefix != "" {
			path = prefix + jsonpath.Separator + k
		}
		if store.IsDeleteField(v) {
			delete(m, k)
			paths = append(paths, path)
			continue
		}
		if nested, ok := store.AsMap(v); ok {
			paths = append(paths, stripDeleteFields(path, nested)...)
		}
	}
	return paths
}

func containsDeleteField(m map[string]any) bool {
	return len(stripDeleteFields("", jsonpath.Clone(m))) > 0
}

func (s *Store) AddDoc(ctx context.Context, collection string, data store.Fields) (store.DocRef, error) {
	ref := store.DocRef{Collection: collection, ID: uuid.NewString()}
	if err := ref.Validate(); err != nil {
		return store.DocRef{}, err
	}
	if containsDeleteField(data) {
		return store.DocRef{}, store.Errorf(store.CodeInvalidArgument, "delete-field is not allowed in add")
	}
	err := s.write(ctx, "add-doc", func(tx *sql.Tx) error {
		return putTx(tx, ref, data)
	})
	if err != nil {
		return store.DocRef{}, err
	}
	return ref, nil
}

func (s *Store) SetDoc(ctx context.Context, ref store.DocRef, data store.Fields, merge bool) error {
	if err := ref.Validate(); err != nil {
		return err
	}
	if !merge {
		if containsDeleteField(data) {
			return store.Errorf(store.CodeInvalidArgument, "delete-field is only allowed in merge sets")
		}
		return s.write(ctx, "set-doc", func(tx *sql.Tx) error {
			return putTx(tx, ref, data)
		})
	}
	payload := jsonpath.Clone(data)
	deletes := stripDeleteFields("", payload)
	return s.write(ctx, "set-doc", func(tx *sql.Tx) error {
		cur, _, err := getTx(tx, ref)
		if err != nil {
			return err
		}
		if cur == nil {
			cur = store.Fields{}
		}
		jsonpath.Merge(cur, payload)
		for _, p := range deletes {
			jsonpath.Delete(cur, p)
		}
		return putTx(tx, ref, cur)
	})
}

// UpdateDoc applies data to an existing document. Keys are field paths; a DeleteField value
// removes the field.
func (s *Store) UpdateDoc(ctx context.Context, ref store.DocRef, data store.Fields) error {
	if err := ref.Validate(); err != nil {
		return err
	}
	return s.write(ctx, "update-doc", func(tx *sql.Tx) error {
		cur, ok, err := getTx(tx, ref)
		if err != nil {
			return err
		}
		if !ok {
			return store.Errorf(store.CodeNotFound, "no document to update: %s", ref)
		}
		for path, v := range data {
			if store.IsDeleteField(v) {
				jsonpath.Delete(cur, path)
				continue
			}
			if nested, ok := store.AsMap(v); ok {
				v = jsonpath.Clone(nested)
			}
			if err := jsonpath.Set(cur, path, v); err != nil {
				return store.Errorf(store.CodeInvalidArgument, "update %s: %v", ref, err)
			}
		}
		return putTx(tx, ref, cur)
	})
}

func (s *Store) DeleteDoc(ctx context.Context, ref store.DocRef) error {
	if err := ref.Validate(); err != nil {
		return err
	}
	return s.write(ctx, "delete-doc", func(tx *sql.Tx) error {
		_, err := tx.Exec(`DELETE FROM documents WHERE collection = ? AND id = ?;`, ref.Collection, ref.ID)
		if err != nil {
			return fmt.Errorf("delete %s: %w", ref, err)
		}
		return nil
	})
}
