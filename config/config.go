// Package config resolves the settings of the docfacade binaries from an env.Env.
package config

import (
	"fmt"

	"github.com/mazzegi/docfacade/env"
	"github.com/mazzegi/docfacade/sqlitex"
)

const Prefix = "DOCFACADE_"

type Minio struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	SSL       bool
}

// Enabled reports whether an object store is configured at all.
func (m Minio) Enabled() bool {
	return m.Endpoint != ""
}

type Config struct {
	StoreFile            string
	SQLiteDriver         sqlitex.Driver
	ServerURL            string
	CacheDir             string
	Listen               string
	APIToken             string
	FilesDir             string
	FilesBaseURL         string
	Minio                Minio
	ExclusivePersistence bool
}

// Default settings:
//
//	STORE_FILE      docfacade.db
//	SQLITE_DRIVER   sqlite3
//	LISTEN          :8044
//	FILES_DIR       files
//	FILES_BASE_URL  http://localhost:8044/files
//	MINIO_BUCKET    docfacade
//
// ServerURL and CacheDir are empty: clients use the local store file and have no cache.
// Without APIToken the server accepts every request.
func Default() Config {
	return Config{
		StoreFile:    "docfacade.db",
		SQLiteDriver: sqlitex.DriverCGo,
		Listen:       ":8044",
		FilesDir:     "files",
		FilesBaseURL: "http://localhost:8044/files",
		Minio: Minio{
			Bucket: "docfacade",
		},
	}
}

// Load reads the DOCFACADE_* keys of e on top of Default.
func Load(e env.Env) (Config, error) {
	c := Default()
	sub := e.Sub(Prefix)

	c.StoreFile = sub.StringOrDefault("STORE_FILE", c.StoreFile)
	drv, err := sqlitex.ParseDriver(sub.StringOrDefault("SQLITE_DRIVER", string(c.SQLiteDriver)))
	if err != nil {
		return Config{}, fmt.Errorf("config SQLITE_DRIVER: %w", err)
	}
	c.SQLiteDriver = drv
	c.ServerURL = sub.StringOrDefault("SERVER_URL", c.ServerURL)
	c.CacheDir = sub.StringOrDefault("CACHE_DIR", c.CacheDir)
	c.Listen = sub.StringOrDefault("LISTEN", c.Listen)
	c.APIToken = sub.StringOrDefault("API_TOKEN", c.APIToken)
	c.FilesDir = sub.StringOrDefault("FILES_DIR", c.FilesDir)
	c.FilesBaseURL = sub.StringOrDefault("FILES_BASE_URL", c.FilesBaseURL)
	c.ExclusivePersistence = sub.BoolOrDefault("EXCLUSIVE_PERSISTENCE", c.ExclusivePersistence)

	c.Minio.Endpoint = sub.StringOrDefault("MINIO_ENDPOINT", c.Minio.Endpoint)
	c.Minio.AccessKey = sub.StringOrDefault("MINIO_ACCESS_KEY", c.Minio.AccessKey)
	c.Minio.SecretKey = sub.StringOrDefault("MINIO_SECRET_KEY", c.Minio.SecretKey)
	c.Minio.Bucket = sub.StringOrDefault("MINIO_BUCKET", c.Minio.Bucket)
	if v, ok := sub.Var("MINIO_SSL"); ok {
		ssl, ok := sub.Bool("MINIO_SSL")
		if !ok {
			return Config{}, fmt.Errorf("config MINIO_SSL: not a boolean %q", fmt.Sprint(v))
		}
		c.Minio.SSL = ssl
	}
	return c, nil
}
