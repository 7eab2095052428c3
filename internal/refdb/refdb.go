// Package refdb loads the reference reaction database: the universal reaction
// bag (a large COBRA JSON network) and the gene lookup tables (SQLite). Both
// are read-mostly; a database directory is loaded once per process and reused
// across reconstructions.
//
// Expected directory layout:
//
//	universal.json or universal.json.gz   reference network
//	genes.db                              sqlite tables gene_reactions, gene_names
package refdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	"github.com/csbl/reconstructor/internal/model"
	"github.com/csbl/reconstructor/internal/modelio"
)

// Database is a loaded reference database. It is safe for concurrent readers;
// nothing mutates it after Open returns.
type Database struct {
	dir string

	universal     *model.Network
	geneReactions map[string][]string
	geneNames     map[string]string
}

var (
	cacheMu sync.Mutex
	cache   = map[string]*Database{}
)

// Load returns the database for dir, opening it on first use and caching the
// result for the rest of the process.
func Load(dir string, logger *zap.Logger) (*Database, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("refdb: resolve %s: %w", dir, err)
	}
	cacheMu.Lock()
	defer cacheMu.Unlock()
	if db, ok := cache[abs]; ok {
		return db, nil
	}
	db, err := Open(abs, logger)
	if err != nil {
		return nil, err
	}
	cache[abs] = db
	return db, nil
}

// Open loads a reference database directory without consulting the process
// cache. The universal network and the gene tables load concurrently; the
// sqlite handle is closed before Open returns.
func Open(dir string, logger *zap.Logger) (*Database, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db := &Database{dir: dir}

	var g errgroup.Group
	g.Go(func() error {
		path, err := universalPath(dir)
		if err != nil {
			return err
		}
		net, err := modelio.Read(path)
		if err != nil {
			return err
		}
		db.universal = net
		return nil
	})
	g.Go(func() error {
		reactions, names, err := loadGeneTables(filepath.Join(dir, "genes.db"))
		if err != nil {
			return err
		}
		db.geneReactions = reactions
		db.geneNames = names
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logger.Info("reference database loaded",
		zap.String("dir", dir),
		zap.Int("reactions", len(db.universal.Reactions())),
		zap.Int("metabolites", len(db.universal.Metabolites())),
		zap.Int("mapped_genes", len(db.geneReactions)),
	)
	return db, nil
}

func universalPath(dir string) (string, error) {
	for _, name := range []string{"universal.json", "universal.json.gz"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("refdb: no universal.json or universal.json.gz in %s", dir)
}

func loadGeneTables(path string) (map[string][]string, map[string]string, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, nil, fmt.Errorf("refdb: gene tables: %w", err)
	}
	handle, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, nil, fmt.Errorf("refdb: open %s: %w", path, err)
	}
	defer handle.Close()

	reactions := map[string][]string{}
	rows, err := handle.Query("SELECT gene, reaction FROM gene_reactions ORDER BY rowid")
	if err != nil {
		return nil, nil, fmt.Errorf("refdb: query gene_reactions: %w", err)
	}
	for rows.Next() {
		var gene, reaction string
		if err := rows.Scan(&gene, &reaction); err != nil {
			rows.Close()
			return nil, nil, fmt.Errorf("refdb: scan gene_reactions: %w", err)
		}
		reactions[gene] = append(reactions[gene], reaction)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, nil, fmt.Errorf("refdb: read gene_reactions: %w", err)
	}
	rows.Close()

	names := map[string]string{}
	rows, err = handle.Query("SELECT gene, name FROM gene_names")
	if err != nil {
		return nil, nil, fmt.Errorf("refdb: query gene_names: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var gene, name string
		if err := rows.Scan(&gene, &name); err != nil {
			return nil, nil, fmt.Errorf("refdb: scan gene_names: %w", err)
		}
		names[gene] = name
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("refdb: read gene_names: %w", err)
	}
	return reactions, names, nil
}

// Dir returns the directory the database was loaded from.
func (d *Database) Dir() string { return d.dir }

// Universal returns a deep copy of the universal reaction bag. Callers own
// the copy and may mutate it freely; the cached instance is never exposed for
// mutation.
func (d *Database) Universal() *model.Network {
	return d.universal.Clone()
}

// UniversalRef returns the shared universal instance for read-only lookups.
func (d *Database) UniversalRef() *model.Network {
	return d.universal
}

// ReactionsForGene returns the reference reaction base IDs recorded for an
// external gene code, in table order.
func (d *Database) ReactionsForGene(gene string) []string {
	return d.geneReactions[gene]
}

// GeneName returns the display name recorded for a gene code.
func (d *Database) GeneName(gene string) (string, bool) {
	name, ok := d.geneNames[gene]
	return name, ok
}

// GenesForOrganism returns every mapped gene code belonging to the organism,
// matching on the "<org>:" prefix, in lexical order.
func (d *Database) GenesForOrganism(org string) []string {
	var out []string
	prefix := org + ":"
	for gene := range d.geneReactions {
		if strings.HasPrefix(gene, prefix) {
			out = append(out, gene)
		}
	}
	sort.Strings(out)
	return out
}
