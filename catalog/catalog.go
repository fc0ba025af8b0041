package catalog

import (
	"runtime"

	"github.com/dgraph-io/badger/v3"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/notebook-systems/nbdag/nbgraph"
)

/***

Catalog database format:

	gCatalogStateKey => catalogState (JSON)

	gEntryPrefix, <name> => raw notebook document (.ipynb bytes)

Entries iterate in byte order of their keys, so List() comes back
sorted by name for free.

***/

var (
	gCatalogStateKey = []byte{0x00, 0x00, 0x01}
	gEntryPrefix     = []byte("nb:")
)

// catalogState is the header row stored at gCatalogStateKey.
type catalogState struct {
	MajorVers int32  `json:"major_vers"`
	MinorVers int32  `json:"minor_vers"`
	NumSaved  uint64 `json:"num_saved"`
}

// catalog is a db wrapper archiving uploaded notebook documents
type catalog struct {
	readOnly   bool
	stateDirty bool
	state      catalogState
	db         *badger.DB
}

func OpenCatalog(opts nbgraph.CatalogOpts) (nbgraph.Catalog, error) {
	cat := &catalog{
		readOnly: opts.ReadOnly,
	}

	dbOpts := badger.DefaultOptions(opts.DBPath)
	dbOpts.ReadOnly = opts.ReadOnly
	dbOpts.DetectConflicts = false // not needed so disable for performance
	dbOpts.Logger = nil

	// Badger for windows currently does not support read-only mode
	if runtime.GOOS == "windows" {
		dbOpts.ReadOnly = false
	}

	if len(opts.DBPath) == 0 {
		if opts.ReadOnly {
			return nil, errors.Wrap(nbgraph.ErrBadCatalogParam, "DBPath must be specified for read-only catalog")
		}
		dbOpts.InMemory = true
	}

	var err error
	cat.db, err = badger.Open(dbOpts)
	if err != nil {
		return nil, err
	}

	err = cat.loadState()
	if err == badger.ErrKeyNotFound {
		err = nil
		cat.stateDirty = true
		cat.state.MajorVers = 2026
		cat.state.MinorVers = 1
	}

	if err == nil && (cat.state.MajorVers != 2026 || cat.state.MinorVers != 1) {
		err = errors.New("catalog version is incompatible")
	}

	if err != nil {
		cat.Close()
		return nil, err
	}

	return cat, nil
}

func (cat *catalog) loadState() error {
	return cat.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(gCatalogStateKey)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &cat.state)
		})
	})
}

func (cat *catalog) flushState() {
	if cat.stateDirty && !cat.readOnly {
		err := cat.db.Update(func(txn *badger.Txn) error {
			stateBuf, err := json.Marshal(&cat.state)
			if err != nil {
				return err
			}
			return txn.Set(gCatalogStateKey, stateBuf)
		})
		if err != nil {
			panic(err)
		}
		cat.stateDirty = false
	}
}

func (cat *catalog) Close() error {
	cat.flushState()
	if cat.db == nil {
		return nil
	}
	err := cat.db.Close()
	cat.db = nil
	return err
}

func (cat *catalog) IsReadOnly() bool {
	return cat.readOnly
}

func (cat *catalog) NumSaved() int64 {
	return int64(cat.state.NumSaved)
}

func entryKey(name string) []byte {
	key := make([]byte, 0, len(gEntryPrefix)+len(name))
	key = append(key, gEntryPrefix...)
	key = append(key, name...)
	return key
}

// Put archives a notebook document, overwriting any previous upload
// under the same name.
func (cat *catalog) Put(name string, data []byte) (isNew bool, err error) {
	if cat.readOnly {
		return false, errors.New("catalog is read-only")
	}
	if len(name) == 0 {
		return false, errors.Wrap(nbgraph.ErrBadCatalogParam, "notebook name must not be empty")
	}

	key := entryKey(name)
	err = cat.db.Update(func(txn *badger.Txn) error {
		_, getErr := txn.Get(key)
		if getErr == badger.ErrKeyNotFound {
			isNew = true
		} else if getErr != nil {
			return getErr
		}
		return txn.Set(key, data)
	})
	if err != nil {
		return false, err
	}

	if isNew {
		cat.state.NumSaved++
		cat.stateDirty = true
		cat.flushState()
	}
	return isNew, nil
}

// Get returns the archived document bytes for the given name.
func (cat *catalog) Get(name string) ([]byte, error) {
	var data []byte
	err := cat.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(entryKey(name))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, errors.Wrap(nbgraph.ErrNotebookNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// List enumerates archived notebooks without loading their contents.
func (cat *catalog) List() ([]nbgraph.CatalogEntry, error) {
	entries := []nbgraph.CatalogEntry{}
	err := cat.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{
			PrefetchValues: false,
			Prefix:         gEntryPrefix,
		})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			entries = append(entries, nbgraph.CatalogEntry{
				Name: string(item.Key()[len(gEntryPrefix):]),
				Size: item.ValueSize(),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
