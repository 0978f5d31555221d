// docserver serves a local document store over HTTP and websockets.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mazzegi/docfacade/config"
	"github.com/mazzegi/docfacade/db"
	"github.com/mazzegi/docfacade/env"
	"github.com/mazzegi/docfacade/errorx"
	"github.com/mazzegi/docfacade/functions"
	"github.com/mazzegi/docfacade/localstore"
	"github.com/mazzegi/docfacade/server"
	"github.com/mazzegi/log"
)

func main() {
	cfg, err := config.Load(env.Glob())
	errorx.ExitWhen(err)

	ls, err := localstore.Open(cfg.StoreFile, localstore.Options{Driver: cfg.SQLiteDriver})
	errorx.ExitWhen(err)
	d := db.New(ls, db.Options{ExclusivePersistence: true})
	defer d.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	errorx.ExitWhen(d.EnablePersistence(ctx))
	if state := d.PersistenceState(); state != nil {
		log.Warnf("docserver: %v", state)
	}

	reg := functions.NewRegistry()
	registerBuiltins(reg, d)

	opts := server.Options{Token: cfg.APIToken}
	if !cfg.Minio.Enabled() {
		opts.FilesDir = cfg.FilesDir
		errorx.ExitWhen(os.MkdirAll(cfg.FilesDir, os.ModePerm))
	}
	srv := server.New(ls, reg, opts)
	log.Infof("docserver: store %q, functions %v", cfg.StoreFile, reg.Names())
	errorx.ExitWhen(srv.Run(ctx, cfg.Listen))
}
