package ismp

import (
	"sort"

	"github.com/polytope-labs/go-ismp/grandpa"
	"github.com/polytope-labs/go-ismp/ismperrors"
	"github.com/polytope-labs/go-ismp/log"
	"github.com/polytope-labs/go-ismp/trie"
	"github.com/polytope-labs/go-ismp/types"
)

// ConsensusClientKind is the closed set of supported consensus verifiers,
// dispatched explicitly rather than through an open registry.
type ConsensusClientKind byte

const (
	ConsensusGrandpa ConsensusClientKind = iota
)

// ClientConfig is the per-client policy supplied by the embedder.
type ClientConfig struct {
	Kind ConsensusClientKind
	// ChallengePeriod in seconds between accepted updates; 0 means the
	// client is trusted and updates apply immediately.
	ChallengePeriod uint64
	// Timestamp overrides the timestamp-extrinsic decoding for chains
	// with a nonstandard layout; nil selects the default.
	Timestamp grandpa.TimestampExtractor
}

// Handler applies consensus messages against the store. All verification
// runs on local values; the store is written only after the whole message
// verified, so a failed call leaves no partial state.
type Handler struct {
	store   Host
	clients map[types.ConsensusClientID]ClientConfig
}

func NewHandler(store Host) *Handler {
	return &Handler{store: store, clients: make(map[types.ConsensusClientID]ClientConfig)}
}

// CreateClient registers a consensus client with its initial trusted state.
func (h *Handler) CreateClient(id types.ConsensusClientID, cfg ClientConfig, initial *types.ConsensusState) error {
	switch cfg.Kind {
	case ConsensusGrandpa:
	default:
		return ismperrors.ErrCUnknownConsensusClient
	}
	h.clients[id] = cfg
	if err := h.store.PutConsensusState(id, initial); err != nil {
		return err
	}
	log.Info("ismp", "consensus client created", "id", id.String(), "stateMachine", initial.StateMachine.String())
	return nil
}

// FreezeClient marks a client byzantine; it rejects all further updates.
func (h *Handler) FreezeClient(id types.ConsensusClientID) error {
	if _, ok := h.clients[id]; !ok {
		return ismperrors.ErrCUnknownConsensusClient
	}
	log.Warn("ismp", "consensus client frozen", "id", id.String())
	return h.store.FreezeClient(id)
}

// stateUpdate is one verified commitment waiting for the atomic write.
type stateUpdate struct {
	at         types.StateMachineHeight
	commitment *types.StateCommitment
}

// HandleConsensusMessage verifies msg for the given client and commits the
// resulting consensus state and state commitments. now is the host's unix
// time, used for the challenge-period policy.
func (h *Handler) HandleConsensusMessage(id types.ConsensusClientID, now uint64, msg *types.ConsensusMessage) error {
	cfg, ok := h.clients[id]
	if !ok {
		return ismperrors.ErrCUnknownConsensusClient
	}
	frozen, err := h.store.FrozenClient(id)
	if err != nil {
		return err
	}
	if frozen {
		return ismperrors.ErrCFrozenClient
	}
	if cfg.ChallengePeriod > 0 {
		lastUpdate, err := h.store.ConsensusUpdateTime(id)
		if err != nil {
			return err
		}
		if lastUpdate != 0 && now < lastUpdate+cfg.ChallengePeriod {
			return ismperrors.ErrCChallengePeriodNotElapsed
		}
	}
	state, err := h.store.ConsensusState(id)
	if err != nil {
		return err
	}

	var next *types.ConsensusState
	var updates []stateUpdate
	switch cfg.Kind {
	case ConsensusGrandpa:
		next, updates, err = h.verifyGrandpa(id, state, cfg, msg)
	default:
		err = ismperrors.ErrCUnknownConsensusClient
	}
	if err != nil {
		return err
	}

	// verification is done; everything below is the atomic commit
	sort.Slice(updates, func(i, j int) bool { return updates[i].at.Height < updates[j].at.Height })
	if err := h.store.PutConsensusState(id, next); err != nil {
		return err
	}
	if err := h.store.PutConsensusUpdateTime(id, now); err != nil {
		return err
	}
	for _, u := range updates {
		latest, err := h.store.LatestStateMachineHeight(u.at.ID)
		if err != nil {
			return err
		}
		if u.at.Height <= latest {
			// commitments are append-only, replays are skipped
			continue
		}
		if err := h.store.PutStateCommitment(u.at, u.commitment); err != nil {
			return err
		}
		if err := h.store.PutLatestStateMachineHeight(u.at); err != nil {
			return err
		}
		log.Debug("ismp", "state commitment stored",
			"stateMachine", u.at.ID.StateID.String(), "height", u.at.Height)
	}
	log.Info("ismp", "consensus updated",
		"id", id.String(), "height", next.LatestHeight, "hash", next.LatestHash.String_short())
	return nil
}

func (h *Handler) verifyGrandpa(id types.ConsensusClientID, state *types.ConsensusState, cfg ClientConfig, msg *types.ConsensusMessage) (*types.ConsensusState, []stateUpdate, error) {
	switch msg.Kind {
	case types.MessageStandaloneChain:
		fin, err := grandpa.VerifyFinalityProof(state, &msg.Standalone.FinalityProof)
		if err != nil {
			return nil, nil, err
		}
		if fin.Target.Hash() == state.LatestHash {
			return nil, nil, ismperrors.ErrCStaleHeight
		}
		update := stateUpdate{
			at: types.StateMachineHeight{
				ID:     types.StateMachineID{StateID: state.StateMachine, ConsensusClient: id},
				Height: fin.Target.Number,
			},
			commitment: &types.StateCommitment{
				Timestamp:   grandpa.AuraTimestamp(fin.Target),
				OverlayRoot: grandpa.OverlayRoot(fin.Target),
				StateRoot:   fin.Target.StateRoot,
			},
		}
		return fin.State, []stateUpdate{update}, nil

	case types.MessageRelayChain:
		fin, paraHeaders, err := grandpa.VerifyParachainHeaders(state, msg.Relay, cfg.Timestamp)
		if err != nil {
			return nil, nil, err
		}
		if fin.Target.Hash() == state.LatestHash {
			return nil, nil, ismperrors.ErrCStaleHeight
		}
		var updates []stateUpdate
		for paraID, headers := range paraHeaders {
			machine := state.StateMachine
			machine.ParaID = paraID
			for _, ph := range headers {
				updates = append(updates, stateUpdate{
					at: types.StateMachineHeight{
						ID:     types.StateMachineID{StateID: machine, ConsensusClient: id},
						Height: ph.Header.Number,
					},
					commitment: &types.StateCommitment{
						Timestamp:   ph.Timestamp,
						OverlayRoot: grandpa.OverlayRoot(ph.Header),
						StateRoot:   ph.Header.StateRoot,
					},
				})
			}
		}
		return fin.State, updates, nil

	default:
		return nil, nil, ismperrors.ErrEInvalidEnumVariant
	}
}

// StateCommitmentAt is the boundary read used by message verification one
// layer up (request/response proofs against a finalized height).
func (h *Handler) StateCommitmentAt(at types.StateMachineHeight) (*types.StateCommitment, error) {
	return h.store.StateCommitment(at)
}

// VerifyStateProof performs verified reads of keys from a counterparty's
// state trie at a finalized height. The trie algorithm comes from the
// proof envelope's hasher tag, never from the proof bytes. Keys proven
// absent map to nil.
func VerifyStateProof(commitment *types.StateCommitment, proof *types.SubstrateStateProof, keys ...[]byte) (map[string][]byte, error) {
	return trie.ReadProofCheck(proof.Hasher, commitment.StateRoot, proof.StorageProof, keys...)
}
