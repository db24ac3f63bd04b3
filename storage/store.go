// Package storage is the goleveldb-backed implementation of the ismp.Host
// persistence collaborator, with an in-memory variant for tests. The host
// blockchain's single-threaded block execution serializes writers; this
// layer adds no locking of its own beyond leveldb's.
package storage

import (
	"github.com/syndtr/goleveldb/leveldb"
	leveldbStorage "github.com/syndtr/goleveldb/leveldb/storage"

	"github.com/polytope-labs/go-ismp/common"
	"github.com/polytope-labs/go-ismp/ismperrors"
	"github.com/polytope-labs/go-ismp/log"
	"github.com/polytope-labs/go-ismp/types"
)

// Key prefixes, one namespace per concern.
var (
	prefixConsensusState = []byte("cs|")
	prefixUpdateTime     = []byte("ct|")
	prefixFrozen         = []byte("fz|")
	prefixCommitment     = []byte("sc|")
	prefixLatestHeight   = []byte("lh|")
	prefixMmrNode        = []byte("mn|")
	prefixLeaf           = []byte("ml|")
	prefixLeafIndex      = []byte("mi|")
	keyLeafCount         = []byte("lc|")
	prefixRequestAck     = []byte("ra|")
	prefixReceipt        = []byte("rr|")
)

// Store persists all ISMP state in one leveldb namespace.
type Store struct {
	db *leveldb.DB
}

// NewStore opens (or creates) the database at path.
func NewStore(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	log.Info("storage", "store opened", "path", path)
	return &Store{db: db}, nil
}

// NewMemoryStore backs the store with leveldb's in-memory storage, for
// tests and offline tooling.
func NewMemoryStore() (*Store, error) {
	db, err := leveldb.Open(leveldbStorage.NewMemStorage(), nil)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func key(prefix []byte, parts ...[]byte) []byte {
	out := append([]byte(nil), prefix...)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func (s *Store) get(k []byte) ([]byte, bool, error) {
	v, err := s.db.Get(k, nil)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// --- ConsensusStore ---

func (s *Store) ConsensusState(id types.ConsensusClientID) (*types.ConsensusState, error) {
	raw, ok, err := s.get(key(prefixConsensusState, id[:]))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ismperrors.ErrCConsensusStateNotFound
	}
	return types.DecodeConsensusState(raw)
}

func (s *Store) PutConsensusState(id types.ConsensusClientID, cs *types.ConsensusState) error {
	return s.db.Put(key(prefixConsensusState, id[:]), cs.Bytes(), nil)
}

func (s *Store) ConsensusUpdateTime(id types.ConsensusClientID) (uint64, error) {
	raw, ok, err := s.get(key(prefixUpdateTime, id[:]))
	if err != nil || !ok {
		return 0, err
	}
	at, _ := common.BytesToUint64(raw)
	return at, nil
}

func (s *Store) PutConsensusUpdateTime(id types.ConsensusClientID, at uint64) error {
	return s.db.Put(key(prefixUpdateTime, id[:]), common.Uint64ToBytes(at), nil)
}

func (s *Store) FrozenClient(id types.ConsensusClientID) (bool, error) {
	_, ok, err := s.get(key(prefixFrozen, id[:]))
	return ok, err
}

func (s *Store) FreezeClient(id types.ConsensusClientID) error {
	return s.db.Put(key(prefixFrozen, id[:]), []byte{1}, nil)
}

// --- CommitmentStore ---

func commitmentKey(at types.StateMachineHeight) []byte {
	return key(prefixCommitment, at.ID.Bytes(), common.Uint32ToBytes(at.Height))
}

func (s *Store) StateCommitment(at types.StateMachineHeight) (*types.StateCommitment, error) {
	raw, ok, err := s.get(commitmentKey(at))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ismperrors.ErrCStateCommitmentNotFound
	}
	return types.DecodeStateCommitment(raw)
}

func (s *Store) PutStateCommitment(at types.StateMachineHeight, sc *types.StateCommitment) error {
	return s.db.Put(commitmentKey(at), sc.Bytes(), nil)
}

func (s *Store) LatestStateMachineHeight(id types.StateMachineID) (uint32, error) {
	raw, ok, err := s.get(key(prefixLatestHeight, id.Bytes()))
	if err != nil || !ok {
		return 0, err
	}
	height, _ := common.BytesToUint32(raw)
	return height, nil
}

func (s *Store) PutLatestStateMachineHeight(at types.StateMachineHeight) error {
	return s.db.Put(key(prefixLatestHeight, at.ID.Bytes()), common.Uint32ToBytes(at.Height), nil)
}

// --- MmrStore ---

func (s *Store) GetNode(pos uint64) (common.Hash, bool, error) {
	raw, ok, err := s.get(key(prefixMmrNode, common.Uint64ToBytes(pos)))
	if err != nil || !ok {
		return common.Hash{}, false, err
	}
	return common.BytesToHash(raw), true, nil
}

func (s *Store) SetNode(pos uint64, h common.Hash) error {
	return s.db.Put(key(prefixMmrNode, common.Uint64ToBytes(pos)), h.Bytes(), nil)
}

func (s *Store) LeafCount() (uint64, error) {
	raw, ok, err := s.get(keyLeafCount)
	if err != nil || !ok {
		return 0, err
	}
	count, _ := common.BytesToUint64(raw)
	return count, nil
}

func (s *Store) PutLeafCount(count uint64) error {
	return s.db.Put(keyLeafCount, common.Uint64ToBytes(count), nil)
}

func (s *Store) Leaf(index uint64) ([]byte, bool, error) {
	return s.get(key(prefixLeaf, common.Uint64ToBytes(index)))
}

func (s *Store) PutLeaf(index uint64, leaf []byte) error {
	return s.db.Put(key(prefixLeaf, common.Uint64ToBytes(index)), leaf, nil)
}

func (s *Store) LeafIndex(commitment common.Hash) (uint64, bool, error) {
	raw, ok, err := s.get(key(prefixLeafIndex, commitment.Bytes()))
	if err != nil || !ok {
		return 0, false, err
	}
	index, _ := common.BytesToUint64(raw)
	return index, true, nil
}

func (s *Store) PutLeafIndex(commitment common.Hash, index uint64) error {
	return s.db.Put(key(prefixLeafIndex, commitment.Bytes()), common.Uint64ToBytes(index), nil)
}

// --- ReceiptStore ---

func (s *Store) RequestAcked(commitment common.Hash) (bool, error) {
	_, ok, err := s.get(key(prefixRequestAck, commitment.Bytes()))
	return ok, err
}

func (s *Store) PutRequestAck(commitment common.Hash) error {
	return s.db.Put(key(prefixRequestAck, commitment.Bytes()), []byte{1}, nil)
}

func (s *Store) DeleteRequestAck(commitment common.Hash) error {
	return s.db.Delete(key(prefixRequestAck, commitment.Bytes()), nil)
}

func (s *Store) ResponseReceived(commitment common.Hash) (bool, error) {
	_, ok, err := s.get(key(prefixReceipt, commitment.Bytes()))
	return ok, err
}

func (s *Store) PutResponseReceipt(commitment common.Hash) error {
	return s.db.Put(key(prefixReceipt, commitment.Bytes()), []byte{1}, nil)
}
