// Package state is the core API for the chain and implements all the
// business rules and processing. All chain-state mutation funnels
// through one mutex, so blocks and reorgs apply as single atomic steps.
package state

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/flsschain/flss/foundation/blockchain/database"
	"github.com/flsschain/flss/foundation/blockchain/genesis"
	"github.com/flsschain/flss/foundation/blockchain/mempool"
	"github.com/flsschain/flss/foundation/blockchain/peer"
	"github.com/flsschain/flss/foundation/blockchain/signature"
	"github.com/flsschain/flss/foundation/events"
)

// EventHandler defines a function that is called when events occur in
// the processing of persisting blocks.
type EventHandler func(v string, args ...any)

// Config represents the configuration required to start the chain.
type Config struct {
	Genesis    genesis.Genesis
	Storage    database.Storage
	KnownPeers *peer.Set
	Events     *events.Events
	EvHandler  EventHandler
}

// State manages the chain: the block store, the derived index, the
// mempool, and the sync machinery.
type State struct {
	mu sync.Mutex

	genesis    genesis.Genesis
	storage    database.Storage
	knownPeers *peer.Set
	events     *events.Events
	evHandler  EventHandler

	index   *database.Index
	mempool *mempool.Mempool
	height  uint64           // Number of committed blocks; the next write height.
	tail    []database.Block // The last Tail blocks in ascending order.

	lastSeenPush string
	push         PushFunc

	worker *worker
}

// New constructs the chain state, replaying any blocks found in
// storage. A corrupt store halts construction.
func New(cfg Config) (*State, error) {
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	evs := cfg.Events
	if evs == nil {
		evs = events.New()
	}

	s := State{
		genesis:    cfg.Genesis,
		storage:    cfg.Storage,
		knownPeers: cfg.KnownPeers,
		events:     evs,
		evHandler:  ev,
		index:      database.NewIndex(cfg.Genesis.SigCacheSize),
		mempool:    mempool.New(),
	}

	if err := s.load(); err != nil {
		return nil, err
	}

	runWorker(&s, ev)

	return &s, nil
}

// Shutdown cleanly brings the chain down.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	defer func() {
		s.storage.Close()
	}()

	s.worker.shutdown()

	return nil
}

// load replays the block store into the index. An empty store is seeded
// with the genesis block.
func (s *State) load() error {
	var loaded int

	iter := s.storage.ForEach()
	for block, err := iter.Next(); !iter.Done(); block, err = iter.Next() {
		if err != nil {
			return fmt.Errorf("read block %d: %w", loaded, err)
		}

		if loaded == 0 {
			genBlock, err := GenesisBlock(s.genesis)
			if err != nil {
				return err
			}
			if block.Hash != genBlock.Hash {
				return fmt.Errorf("stored genesis block does not match protocol parameters")
			}
			s.commitGenesis(genBlock)
			loaded++
			continue
		}

		if err := s.applyBlock(block, applyReplay); err != nil {
			return fmt.Errorf("replay block %d: %w", loaded, err)
		}
		loaded++
	}

	if loaded == 0 {
		genBlock, err := GenesisBlock(s.genesis)
		if err != nil {
			return err
		}
		if err := s.storage.Write(0, genBlock); err != nil {
			return fmt.Errorf("write genesis block: %w", err)
		}
		s.commitGenesis(genBlock)
		loaded++
	}

	s.evHandler("state: load: chain loaded: blocks[%d]", loaded)

	return nil
}

// commitGenesis applies the genesis block to an empty index. The
// genesis block is trusted by construction and never validated.
func (s *State) commitGenesis(block database.Block) {
	s.index.Release(block.Timestamp)
	for _, tx := range block.Transactions {
		s.index.ApplyTx(tx, block.Timestamp)
	}
	s.height = 1
	s.tail = []database.Block{block}
}

// GenesisBlock synthesizes the deterministic height-zero block from the
// protocol parameters. Every node on a network derives the same block.
func GenesisBlock(gen genesis.Genesis) (database.Block, error) {
	date, err := time.Parse(time.RFC3339, gen.Date)
	if err != nil {
		return database.Block{}, fmt.Errorf("parse genesis date: %w", err)
	}

	accounts := make([]string, 0, len(gen.Balances))
	for account := range gen.Balances {
		accounts = append(accounts, account)
	}
	sort.Strings(accounts)

	txs := make([]database.Tx, 0, len(accounts))
	for _, account := range accounts {
		txs = append(txs, database.Tx{
			Sender:    database.MintSender,
			Receiver:  database.AccountID(account),
			Amount:    gen.Balances[account],
			Signature: database.MintSignature,
			Timestamp: date.UnixMilli(),
		})
	}

	block := database.Block{
		Timestamp:    date.UnixMilli(),
		Transactions: txs,
		PrevHash:     signature.ZeroHash,
		Diff:         gen.StartingDiff,
	}

	hash, err := block.ComputeHash()
	if err != nil {
		return database.Block{}, err
	}
	block.Hash = hash

	return block, nil
}

// tailTimestamps returns the timestamps of the tail in ascending order.
func (s *State) tailTimestamps() []int64 {
	stamps := make([]int64, len(s.tail))
	for i, block := range s.tail {
		stamps[i] = block.Timestamp
	}

	return stamps
}

// lastHash returns the hash of the current tip.
func (s *State) lastHash() string {
	if len(s.tail) == 0 {
		return signature.ZeroHash
	}

	return s.tail[len(s.tail)-1].Hash
}

// appendTail adds a committed block to the tail, trimming it to the
// protocol window.
func (s *State) appendTail(block database.Block) {
	s.tail = append(s.tail, block)
	if max := s.genesis.Tail; max > 0 && len(s.tail) > max {
		s.tail = s.tail[len(s.tail)-max:]
	}
}
