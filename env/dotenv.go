package env

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DotenvFile     = ".env"
	DotenvFileToml = ".env.toml"
)

func loadDotenv(path string) (map[string]any, error) {
	vs := map[string]any{}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, v, _ := strings.Cut(strings.TrimPrefix(line, "export "), "=")
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		v = unquote(strings.TrimSpace(v))
		if v == "" {
			vs[k] = true
		} else {
			vs[k] = v
		}
	}
	return vs, scanner.Err()
}

func loadDotenvToml(path string) (map[string]any, error) {
	vs := map[string]any{}
	_, err := toml.DecodeFile(path, &vs)
	if err != nil {
		return nil, err
	}
	return vs, nil
}

// LoadDotenv reads .env and .env.toml files from the working directory up to the root.
// Files closer to the working directory win, and in one directory .env wins over .env.toml.
func LoadDotenv() map[string]any {
	wd, err := os.Getwd()
	if err != nil {
		return map[string]any{}
	}
	return LoadDotenvFrom(wd)
}

func LoadDotenvFrom(dir string) map[string]any {
	all := map[string]any{}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return all
	}
	for {
		if vs, err := loadDotenv(filepath.Join(dir, DotenvFile)); err == nil {
			merge(vs, all)
		}
		if vs, err := loadDotenvToml(filepath.Join(dir, DotenvFileToml)); err == nil {
			merge(vs, all)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return all
		}
		dir = parent
	}
}
