package cli

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/marmos91/tokenmig/pkg/namespace"
	"github.com/marmos91/tokenmig/pkg/namespace/badger"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	configPath, logLevel = "", ""
	runTokens, runReverse = nil, false
	initForce, versionJSON = false, false
	resetChanged(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func resetChanged(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) { f.Changed = false }
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, child := range cmd.Commands() {
		resetChanged(child)
	}
}

// fixture is a badger namespace and a sqlite catalog snapshot describing
// /pnfs/src/a/file.dat (0000AAA1) reserved in token T1 and
// /pnfs/src/b.dat (0000BBB1) reserved in token T2.
type fixture struct {
	namespacePath string
	catalogPath   string
	configPath    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		namespacePath: filepath.Join(dir, "namespace"),
		catalogPath:   filepath.Join(dir, "spacemanager.db"),
		configPath:    filepath.Join(dir, "config.yaml"),
	}

	f.seedNamespace(t)
	f.seedCatalog(t)

	config := fmt.Sprintf(`
logging:
  level: ERROR
migration:
  source: /pnfs/src
  destination: /pnfs/dst
  owner: 1000
  group: 1000
namespace:
  type: badger
  badger:
    db_path: %s
catalog:
  type: sqlite
  sqlite:
    path: %s
`, f.namespacePath, f.catalogPath)
	require.NoError(t, os.WriteFile(f.configPath, []byte(config), 0644))
	return f
}

func (f *fixture) openNamespace(t *testing.T) *badger.BadgerNamespaceStore {
	t.Helper()
	store, err := badger.NewBadgerNamespaceStore(context.Background(), badger.BadgerNamespaceStoreConfig{DBPath: f.namespacePath})
	require.NoError(t, err)
	return store
}

func (f *fixture) seedNamespace(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	store := f.openNamespace(t)
	defer store.Close()

	root, err := store.PathToHandle(ctx, "/")
	require.NoError(t, err)
	pnfs, err := store.Mkdir(ctx, root, "pnfs", 0, 0, namespace.DirMode)
	require.NoError(t, err)
	src, err := store.Mkdir(ctx, pnfs, "src", 0, 0, namespace.DirMode)
	require.NoError(t, err)
	_, err = store.Mkdir(ctx, pnfs, "dst", 0, 0, namespace.DirMode)
	require.NoError(t, err)
	a, err := store.Mkdir(ctx, src, "a", 0, 0, namespace.DirMode)
	require.NoError(t, err)
	_, err = store.CreateFile(ctx, a, "file.dat", "0000AAA1", 1000, 1000, 0644)
	require.NoError(t, err)
	_, err = store.CreateFile(ctx, src, "b.dat", "0000BBB1", 1000, 1000, 0644)
	require.NoError(t, err)
}

func (f *fixture) seedCatalog(t *testing.T) {
	t.Helper()
	db, err := sql.Open("sqlite3", f.catalogPath)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`
CREATE TABLE srmspace (id INTEGER PRIMARY KEY, description TEXT);
CREATE TABLE srmspacefile (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	spacereservationid INTEGER NOT NULL,
	pnfsid             TEXT
);
INSERT INTO srmspace (id, description) VALUES (1, 'T1'), (2, 'T2');
INSERT INTO srmspacefile (spacereservationid, pnfsid) VALUES (1, '0000AAA1'), (2, '0000BBB1');
`)
	require.NoError(t, err)
}

func (f *fixture) requireAt(t *testing.T, path string) {
	t.Helper()
	store := f.openNamespace(t)
	defer store.Close()
	_, err := store.PathToHandle(context.Background(), path)
	require.NoError(t, err, "expected %s to exist", path)
}

func TestRun_MigratesSelectedTokens(t *testing.T) {
	f := newFixture(t)

	out, err := execute(t, "run", f.configPath, "--tokens", "T1")
	require.NoError(t, err)

	assert.Contains(t, out, "T1 1 files.\n")
	assert.Contains(t, out, "T2 skip\n")
	assert.Contains(t, out, "skipped (not selected)")
	assert.Contains(t, out, "Total: 1 processed, 1 moved, 0 failed, 2 directories created")

	f.requireAt(t, "/pnfs/dst/T1/a/file.dat")
	f.requireAt(t, "/pnfs/src/b.dat")
}

func TestRun_ForwardThenReverse(t *testing.T) {
	f := newFixture(t)

	_, err := execute(t, "run", "--config", f.configPath)
	require.NoError(t, err)
	f.requireAt(t, "/pnfs/dst/T1/a/file.dat")
	f.requireAt(t, "/pnfs/dst/T2/b.dat")

	// Reverse reads from the token tree: swap the roots
	config, err := os.ReadFile(f.configPath)
	require.NoError(t, err)
	swapped := strings.NewReplacer("source: /pnfs/src", "source: /pnfs/dst", "destination: /pnfs/dst", "destination: /pnfs/src").Replace(string(config))
	require.NoError(t, os.WriteFile(f.configPath, []byte(swapped), 0644))

	out, err := execute(t, "run", f.configPath, "--reverse")
	require.NoError(t, err)
	assert.Contains(t, out, "(reverse)")

	f.requireAt(t, "/pnfs/src/a/file.dat")
	f.requireAt(t, "/pnfs/src/b.dat")
}

func TestRun_MissingSourceFails(t *testing.T) {
	f := newFixture(t)

	config, err := os.ReadFile(f.configPath)
	require.NoError(t, err)
	broken := bytes.ReplaceAll(config, []byte("source: /pnfs/src"), []byte("source: /pnfs/nowhere"))
	require.NoError(t, os.WriteFile(f.configPath, broken, 0644))

	_, err = execute(t, "run", f.configPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resolve source root /pnfs/nowhere")
}

func TestRun_InvalidConfig(t *testing.T) {
	_, err := execute(t, "run", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "doesn't exist")
}

func TestTokens_ListsSelection(t *testing.T) {
	f := newFixture(t)

	config, err := os.ReadFile(f.configPath)
	require.NoError(t, err)
	withTokens := bytes.Replace(config, []byte("  group: 1000\n"), []byte("  group: 1000\n  tokens: [T2]\n"), 1)
	require.NoError(t, os.WriteFile(f.configPath, withTokens, 0644))

	out, err := execute(t, "tokens", f.configPath)
	require.NoError(t, err)

	assert.Contains(t, out, "T1")
	assert.Contains(t, out, "not selected")
	assert.Contains(t, out, "1 of 2 tokens selected")
}

func TestInit_WritesSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokenmig.yaml")

	out, err := execute(t, "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration written to "+path)
	assert.FileExists(t, path)

	_, err = execute(t, "init", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = execute(t, "init", path, "--force")
	require.NoError(t, err)
}

func TestVersion_JSON(t *testing.T) {
	out, err := execute(t, "version", "--json")
	require.NoError(t, err)

	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, Version, info["version"])
	assert.Equal(t, GitCommit, info["commit"])
	assert.NotEmpty(t, info["go"])
}

func TestSchema_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.schema.json")

	out, err := execute(t, "schema", path)
	require.NoError(t, err)
	assert.Contains(t, out, "JSON schema written to "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))
}
