package main

import (
	"context"
	"fmt"
	"io"

	"github.com/mazzegi/docfacade/config"
	"github.com/mazzegi/docfacade/db"
	"github.com/mazzegi/docfacade/env"
	"github.com/mazzegi/docfacade/files"
	"github.com/mazzegi/docfacade/localstore"
	"github.com/mazzegi/docfacade/remote"
	"github.com/mazzegi/docfacade/services"
	"github.com/mazzegi/docfacade/store"
	"github.com/mazzegi/docfacade/worker"
	"github.com/mazzegi/log"
	"github.com/spf13/cobra"
)

type app struct {
	env     env.Env
	out     io.Writer
	cfg     config.Config
	persist bool
}

func newRootCmd(e env.Env, out io.Writer) *cobra.Command {
	a := &app{env: e, out: out}
	root := &cobra.Command{
		Use:           "docfacade",
		Short:         "docfacade document store client",
		Long:          "Read, write, query and watch documents of a local store file or a docfacade server.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.env)
			if err != nil {
				return err
			}
			fs := cmd.Flags()
			if fs.Changed("store") {
				cfg.StoreFile, _ = fs.GetString("store")
			}
			if fs.Changed("server") {
				cfg.ServerURL, _ = fs.GetString("server")
			}
			if fs.Changed("cache-dir") {
				cfg.CacheDir, _ = fs.GetString("cache-dir")
			}
			a.cfg = cfg
			return nil
		},
	}
	root.SetOut(out)
	pf := root.PersistentFlags()
	pf.String("store", "", "local store file (DOCFACADE_STORE_FILE)")
	pf.String("server", "", "docfacade server url, takes precedence over the store file (DOCFACADE_SERVER_URL)")
	pf.String("cache-dir", "", "local cache of a remote store (DOCFACADE_CACHE_DIR)")
	pf.BoolVar(&a.persist, "persist", false, "enable persistence before running the command")

	root.AddCommand(
		a.addCmd(),
		a.setCmd(),
		a.getCmd(),
		a.deleteCmd(),
		a.deleteFieldCmd(),
		a.getAllCmd(),
		a.queryCmd(),
		a.groupCmd(),
		a.searchCmd(),
		a.watchCmd(),
		a.uploadCmd(),
		a.downloadURLCmd(),
		a.deleteFileCmd(),
		a.callCmd(),
		a.signOutCmd(),
	)
	return root
}

func (a *app) backend() (store.Backend, *remote.Store, error) {
	if a.cfg.ServerURL != "" {
		r, err := remote.New(a.cfg.ServerURL, remote.Options{
			CacheDir:    a.cfg.CacheDir,
			CacheDriver: a.cfg.SQLiteDriver,
			Token:       a.cfg.APIToken,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("remote.new: %w", err)
		}
		return r, r, nil
	}
	ls, err := localstore.Open(a.cfg.StoreFile, localstore.Options{Driver: a.cfg.SQLiteDriver})
	if err != nil {
		return nil, nil, fmt.Errorf("localstore.open: %w", err)
	}
	return ls, nil, nil
}

func (a *app) bucket() (files.Bucket, error) {
	if a.cfg.Minio.Enabled() {
		return files.NewMinio(files.MinioConfig{
			Endpoint:  a.cfg.Minio.Endpoint,
			AccessKey: a.cfg.Minio.AccessKey,
			SecretKey: a.cfg.Minio.SecretKey,
			Bucket:    a.cfg.Minio.Bucket,
			SSL:       a.cfg.Minio.SSL,
		})
	}
	return files.NewFS(a.cfg.FilesDir, a.cfg.FilesBaseURL)
}

// withDB opens the store and the worker for the duration of fn. Functions and sign-out are
// only available against a server.
func (a *app) withDB(ctx context.Context, fn func(s *services.Services) error) error {
	b, r, err := a.backend()
	if err != nil {
		return err
	}
	bucket, err := a.bucket()
	if err != nil {
		b.Close()
		return err
	}
	handlers := worker.Handlers{Files: bucket}
	if r != nil {
		handlers.Functions = r
		handlers.Session = r
	}
	d := db.New(b, db.Options{ExclusivePersistence: a.cfg.ExclusivePersistence})
	s := services.New(ctx, d, worker.New(handlers))
	defer func() {
		if err := s.Close(); err != nil {
			log.Warnf("docfacade: close: %v", err)
		}
	}()
	if a.persist {
		if err := s.EnablePersistence(ctx); err != nil {
			return err
		}
		if state := s.PersistenceState(); state != nil {
			log.Warnf("docfacade: running without persistence: %v", state)
		}
	}
	return fn(s)
}
