package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mazzegi/docfacade/query"
	"github.com/mazzegi/docfacade/store"
)

// Gateway performs single-document writes and reads. Write operations return a human
// readable confirmation.
type Gateway struct {
	client *store.Client
}

func NewGateway(client *store.Client) *Gateway {
	return &Gateway{client: client}
}

func validateDoc(coll, doc string) error {
	if err := query.ValidateCollectionPath(coll); err != nil {
		return err
	}
	if doc == "" || strings.Contains(doc, "/") {
		return invalidShape("invalid document id %q", doc)
	}
	return nil
}

func (g *Gateway) Add(ctx context.Context, coll string, data store.Fields) (string, error) {
	if err := query.ValidateCollectionPath(coll); err != nil {
		return "", err
	}
	if data == nil {
		return "", invalidShape("add to %q: no data", coll)
	}
	_, err := g.client.Collection(coll).Add(ctx, data)
	if err != nil {
		return "", storeError("add", err)
	}
	return fmt.Sprintf("%s document added", coll), nil
}

// Set writes data to coll/doc. With merge the fields are deep-merged into an existing
// document, otherwise the document is replaced.
func (g *Gateway) Set(ctx context.Context, coll, doc string, data store.Fields, merge bool) (string, error) {
	if err := validateDoc(coll, doc); err != nil {
		return "", err
	}
	if data == nil {
		return "", invalidShape("set %s/%s: no data", coll, doc)
	}
	err := g.client.Doc(coll, doc).Set(ctx, data, merge)
	if err != nil {
		return "", storeError("set", err)
	}
	return fmt.Sprintf("%s document set", doc), nil
}

func (g *Gateway) Get(ctx context.Context, coll, doc string) (store.Fields, error) {
	if err := validateDoc(coll, doc); err != nil {
		return nil, err
	}
	snap, err := g.client.Doc(coll, doc).Get(ctx)
	if err != nil {
		return nil, storeError("get", err)
	}
	if !snap.Exists {
		return nil, errors.Join(ErrDocumentNotFound, fmt.Errorf("No such document! %s/%s", coll, doc))
	}
	return snap.Data, nil
}

func (g *Gateway) DeleteDocument(ctx context.Context, coll, doc string) (string, error) {
	if err := validateDoc(coll, doc); err != nil {
		return "", err
	}
	err := g.client.Doc(coll, doc).Delete(ctx)
	if err != nil {
		return "", storeError("delete-document", err)
	}
	return fmt.Sprintf("%s document deleted", doc), nil
}

// DeleteField removes field, which may be a dotted path, from an existing document.
func (g *Gateway) DeleteField(ctx context.Context, coll, doc, field string) (string, error) {
	if err := validateDoc(coll, doc); err != nil {
		return "", err
	}
	if field == "" {
		return "", invalidShape("delete-field on %s/%s: empty field", coll, doc)
	}
	err := g.client.Doc(coll, doc).Update(ctx, store.Fields{field: store.DeleteField})
	if err != nil {
		return "", storeError("delete-field", err)
	}
	return fmt.Sprintf("%s field deleted", field), nil
}
