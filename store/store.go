// Package store is the C7 Durable Store Contract: a storm-over-bbolt backed
// transactional document store, grounded on
// modules/explorergraphql/explorerdb/stormdb.go in the teacher repo (same
// storm.Open + msgpack codec + bolt-transaction wiring), generalized from a
// blockchain explorer index to this backend's repositories.
//
// A storm.DB gives us everything spec §4.7 asks of a store: (a)
// multi-statement transactions via storm's Begin/Commit/Rollback on top of
// a single bolt.Tx, (b) strongly consistent reads within that transaction,
// (c) unique secondary indexes via storm struct tags (`storm:"unique"`),
// and (d) in-transaction sentinel errors — code inside the Update closure
// returns a types.ClientError (ErrPaymentRequired, ErrWalletLocked, ...),
// Update rolls the transaction back, and the caller classifies the
// returned error per spec §9.
package store

import (
	"context"
	"path/filepath"

	"github.com/asdine/storm"
	smsp "github.com/asdine/storm/codec/msgpack"

	"github.com/darve-social/darve-server/persist"
)

const dbFileName = "darve.db"

// DB is the opened store. One DB is shared by every module (ledger, wallet
// registry, gateway, task-reward, notification, access); each module's
// repository methods open their own named storm bucket ("node") off the
// same underlying bolt file, so a single Update call can touch multiple
// domains atomically — exactly what the ledger's Transfer (two wallets,
// two balance-transaction rows) and the task payout (escrow wallet, N
// participants, N donors) both require.
type DB struct {
	stormDB *storm.DB
	log     *persist.Logger
}

// Open opens (creating if absent) the bolt-backed store rooted at dir.
func Open(dir string, log *persist.Logger) (*DB, error) {
	db, err := storm.Open(filepath.Join(dir, dbFileName), storm.Codec(smsp.Codec))
	if err != nil {
		return nil, err
	}
	return &DB{stormDB: db, log: log}, nil
}

// Close releases the underlying bolt file handle.
func (db *DB) Close() error {
	return db.stormDB.Close()
}

// Tx is a single bolt transaction's view of the store, scoped to the
// buckets ("nodes") each repository needs. Every repository function in
// this package takes a *Tx rather than touching db.stormDB directly, so
// call sites compose cross-entity invariants inside one atomic Update.
type Tx struct {
	ctx  context.Context
	root storm.Node
}

// bucket returns the storm node for a given bucket name, scoped to this
// transaction.
func (tx *Tx) bucket(name string) storm.Node {
	return tx.root.From(name)
}

// Update runs fn inside a single writable transaction. If fn (or the
// commit) fails, every write made against tx is rolled back — this is the
// serialization point spec §4.1/§4.4/§5 rely on for the ledger head pointer
// and the task-payout sequence.
func (db *DB) Update(ctx context.Context, fn func(tx *Tx) error) error {
	node, err := db.stormDB.Begin(true)
	if err != nil {
		return err
	}
	tx := &Tx{ctx: ctx, root: node}
	if err := fn(tx); err != nil {
		_ = node.Rollback()
		return err
	}
	return node.Commit()
}

// View runs fn inside a read-only transaction, giving a consistent snapshot
// across the repository calls fn makes.
func (db *DB) View(ctx context.Context, fn func(tx *Tx) error) error {
	node, err := db.stormDB.Begin(false)
	if err != nil {
		return err
	}
	defer node.Rollback()
	tx := &Tx{ctx: ctx, root: node}
	return fn(tx)
}

// Context returns the context.Context the enclosing Update/View call was
// given, so cancellation (spec §5) can be checked at repository call sites.
func (tx *Tx) Context() context.Context {
	return tx.ctx
}
