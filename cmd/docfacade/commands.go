package main

import (
	"fmt"

	"github.com/mazzegi/docfacade/db"
	"github.com/mazzegi/docfacade/query"
	"github.com/mazzegi/docfacade/services"
	"github.com/mazzegi/docfacade/store"
	"github.com/spf13/cobra"
)

func (a *app) addCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <coll> <json|@file>",
		Short: "Add a document with a generated id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := parseFields(args[1])
			if err != nil {
				return err
			}
			return a.withDB(cmd.Context(), func(d *services.Services) error {
				id, err := d.Add(cmd.Context(), args[0], data)
				if err != nil {
					return err
				}
				printLine(a.out, id)
				return nil
			})
		},
	}
}

func (a *app) setCmd() *cobra.Command {
	var replace bool
	cmd := &cobra.Command{
		Use:   "set <coll> <doc> <json|@file>",
		Short: "Write a document, merging into an existing one unless --replace is given",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := parseFields(args[2])
			if err != nil {
				return err
			}
			return a.withDB(cmd.Context(), func(d *services.Services) error {
				msg, err := d.Set(cmd.Context(), args[0], args[1], data, db.SetOptions{Replace: replace})
				if err != nil {
					return err
				}
				printLine(a.out, msg)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&replace, "replace", false, "replace the whole document")
	return cmd
}

func (a *app) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <coll> <doc>",
		Short: "Print a document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDB(cmd.Context(), func(d *services.Services) error {
				data, err := d.Get(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				return printYAML(a.out, data)
			})
		},
	}
}

func (a *app) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <coll> <doc>",
		Short: "Delete a document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDB(cmd.Context(), func(d *services.Services) error {
				msg, err := d.DeleteDocument(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				printLine(a.out, msg)
				return nil
			})
		},
	}
}

func (a *app) deleteFieldCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-field <coll> <doc> <field>",
		Short: "Remove one field of a document",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDB(cmd.Context(), func(d *services.Services) error {
				msg, err := d.DeleteField(cmd.Context(), args[0], args[1], args[2])
				if err != nil {
					return err
				}
				printLine(a.out, msg)
				return nil
			})
		},
	}
}

// specFlags are the ordering, range and limit options of collection reads.
type specFlags struct {
	orderBy   string
	direction string
	startAt   string
	endAt     string
	limit     int
}

func (sf *specFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&sf.orderBy, "order-by", "", "field to order by")
	fs.StringVar(&sf.direction, "direction", "asc", "order direction, asc or desc")
	fs.StringVar(&sf.startAt, "start-at", "", "first order value to include (json or string)")
	fs.StringVar(&sf.endAt, "end-at", "", "last order value to include (json or string)")
	fs.IntVar(&sf.limit, "limit", 0, "maximum number of documents, 0 for all")
}

func (sf *specFlags) spec(cmd *cobra.Command, coll string) query.Spec {
	spec := query.Spec{
		Collection: coll,
		Limit:      sf.limit,
	}
	if sf.orderBy != "" {
		spec.OrderBy = query.By(sf.orderBy, query.Direction(sf.direction))
	}
	if cmd.Flags().Changed("start-at") {
		spec.StartAt = parseValue(sf.startAt)
	}
	if cmd.Flags().Changed("end-at") {
		spec.EndAt = parseValue(sf.endAt)
	}
	return spec
}

func (a *app) printDocs(docs []store.Fields) error {
	if err := printYAML(a.out, docs); err != nil {
		return err
	}
	printCount(a.out, len(docs), "documents")
	return nil
}

func (a *app) getAllCmd() *cobra.Command {
	var sf specFlags
	cmd := &cobra.Command{
		Use:   "get-all <coll>",
		Short: "Print the documents of a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDB(cmd.Context(), func(d *services.Services) error {
				docs, err := d.GetAll(cmd.Context(), sf.spec(cmd, args[0]))
				if err != nil {
					return err
				}
				return a.printDocs(docs)
			})
		},
	}
	sf.register(cmd)
	return cmd
}

func (a *app) queryCmd() *cobra.Command {
	var sf specFlags
	var filters string
	cmd := &cobra.Command{
		Use:   "query <coll> --filters <yaml|@file>",
		Short: "Print the documents of a collection matching all filters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fs, err := parseFilters(filters)
			if err != nil {
				return err
			}
			return a.withDB(cmd.Context(), func(d *services.Services) error {
				docs, err := d.Query(cmd.Context(), sf.spec(cmd, args[0]), fs)
				if err != nil {
					return err
				}
				return a.printDocs(docs)
			})
		},
	}
	sf.register(cmd)
	cmd.Flags().StringVar(&filters, "filters", "", "filter clauses as yaml or json, a single clause or a list")
	cmd.MarkFlagRequired("filters")
	return cmd
}

func (a *app) groupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "group <id> <field> <op> <value>",
		Short: "Query all collections named id, at any nesting level",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			op := query.Op(args[2])
			if !op.Valid() {
				return fmt.Errorf("unknown operator %q", args[2])
			}
			return a.withDB(cmd.Context(), func(d *services.Services) error {
				docs, err := d.CollectionGroup(cmd.Context(), args[0], args[1], op, parseValue(args[3]))
				if err != nil {
					return err
				}
				return a.printDocs(docs)
			})
		},
	}
}

func (a *app) searchCmd() *cobra.Command {
	var direction string
	var limit int
	cmd := &cobra.Command{
		Use:   "search <coll> <field> <text>",
		Short: "Print the documents whose field starts with text",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDB(cmd.Context(), func(d *services.Services) error {
				docs, err := d.PrefixSearch(cmd.Context(), args[0], args[1], args[2], query.Direction(direction), limit)
				if err != nil {
					return err
				}
				return a.printDocs(docs)
			})
		},
	}
	cmd.Flags().StringVar(&direction, "direction", "asc", "order direction, asc or desc")
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum number of documents")
	return cmd
}
