// Package disk implements block storage as one JSON file per block
// height inside a single directory.
package disk

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strconv"

	"github.com/flsschain/flss/foundation/blockchain/database"
)

// Disk represents the storage implementation for reading and storing
// blocks in their own separate files on disk. This implements the
// database.Storage interface.
type Disk struct {
	dbPath string
}

// New constructs a Disk value for use, creating the directory if it
// does not exist.
func New(dbPath string) (*Disk, error) {
	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, err
	}

	return &Disk{dbPath: dbPath}, nil
}

// Close in this implementation has nothing to do since a new file is
// written to disk for each block and then immediately closed.
func (d *Disk) Close() error {
	return nil
}

// Write stores the block on disk in a file named after its height.
// Rewriting an existing height truncates the old contents, which is
// what a reorg needs.
func (d *Disk) Write(height uint64, block database.Block) error {
	data, err := json.MarshalIndent(block, "", "  ")
	if err != nil {
		return err
	}

	f, err := os.OpenFile(d.getPath(height), os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return err
	}

	return f.Sync()
}

// GetBlock reads and returns the block stored for the specified height.
func (d *Disk) GetBlock(height uint64) (database.Block, error) {
	f, err := os.OpenFile(d.getPath(height), os.O_RDONLY, 0600)
	if err != nil {
		return database.Block{}, err
	}
	defer f.Close()

	var block database.Block
	if err := json.NewDecoder(f).Decode(&block); err != nil {
		return database.Block{}, err
	}

	return block, nil
}

// ForEach returns an iterator to walk through all the blocks on disk
// starting with the genesis block at height 0.
func (d *Disk) ForEach() database.Iterator {
	return &iterator{storage: d}
}

// getPath forms the path to the file for the specified height.
func (d *Disk) getPath(height uint64) string {
	name := strconv.FormatUint(height, 10)
	return path.Join(d.dbPath, fmt.Sprintf("%s.json", name))
}

// iterator walks the block files in height order. This implements the
// database.Iterator interface.
type iterator struct {
	storage *Disk
	current uint64
	started bool
	eoc     bool
}

// Next retrieves the next block from disk.
func (it *iterator) Next() (database.Block, error) {
	if it.eoc {
		return database.Block{}, errors.New("end of chain")
	}

	if it.started {
		it.current++
	}
	it.started = true

	block, err := it.storage.GetBlock(it.current)
	if errors.Is(err, fs.ErrNotExist) {
		it.eoc = true
		return database.Block{}, nil
	}

	return block, err
}

// Done returns the end of chain value.
func (it *iterator) Done() bool {
	return it.eoc
}
