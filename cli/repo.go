package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/leachuk/jackrabbit/internal/cas"
	"github.com/leachuk/jackrabbit/internal/persist"
	"github.com/leachuk/jackrabbit/internal/session"
	"github.com/leachuk/jackrabbit/internal/version"
)

const repoDir = ".jackrabbit"

func dbPath() string {
	return filepath.Join(repoDir, "repository.db")
}

// openSession opens the repository in the current directory and starts a
// session over it. The returned closer must be called before exit.
func openSession() (*session.Session, func() error, error) {
	if _, err := os.Stat(repoDir); os.IsNotExist(err) {
		return nil, nil, fmt.Errorf("not in a jackrabbit repository (no %s directory found)", repoDir)
	}

	store, err := persist.Open(dbPath())
	if err != nil {
		return nil, nil, fmt.Errorf("open repository: %w", err)
	}

	values, err := cas.NewBoltCAS(store.DB())
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("open value store: %w", err)
	}

	versions, err := version.NewStore(store.DB())
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("open version store: %w", err)
	}

	sess := session.Open(store, values)
	sess.Versions = versions
	return sess, store.Close, nil
}
