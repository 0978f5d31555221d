package env

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mazzegi/docfacade/testx"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	testx.AssertNoErr(t, os.MkdirAll(filepath.Dir(path), os.ModePerm))
	testx.AssertNoErr(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestFiles(t *testing.T) {
	tx := testx.NewTx(t)
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".env"), "foo=bar\nacme=\"  inc. unlimited ...  \"\nglobal_dsn=user\\domain@foo.bar\n")
	writeFile(t, filepath.Join(root, ".env.toml"), "bar = 40\nfoo = \"not-used\"\n")
	writeFile(t, filepath.Join(root, "sub_1", ".env"), "# comment\nfoo1=baz\nexport dev\n")
	writeFile(t, filepath.Join(root, "sub_1", "sub_2", ".env"), "foo2=bazoo\nloc_dsn=dsn={global_dsn}/local\n")
	writeFile(t, filepath.Join(root, "sub_1", "sub_2", ".env.toml"), "ixy = \"np\"\nfoo2 = \"toml\"\n")

	e := LoadDotenvFrom(filepath.Join(root, "sub_1", "sub_2"))
	for k, v := range map[string]any{
		"foo2":       "bazoo",
		"bar":        int64(40),
		"ixy":        "np",
		"foo1":       "baz",
		"foo":        "bar",
		"acme":       "  inc. unlimited ...  ",
		"dev":        true,
		"global_dsn": "user\\domain@foo.bar",
		"loc_dsn":    "dsn={global_dsn}/local",
	} {
		tx.AssertEqual(v, e[k])
	}

	t.Chdir(filepath.Join(root, "sub_1", "sub_2"))
	env := Load()
	dsn, ok := env.String("loc_dsn")
	tx.AssertEqual(true, ok)
	tx.AssertEqual("dsn=user\\domain@foo.bar/local", dsn)
}
