package ismperrors

import (
	"errors"
	"strings"
)

// Consensus client (C) errors
var (
	ErrCUnknownConsensusClient    = errors.New("C1|UnknownConsensusClient: No consensus client registered for the given consensus client id.")
	ErrCFrozenClient              = errors.New("C2|FrozenClient: Consensus client is frozen due to byzantine behaviour.")
	ErrCChallengePeriodNotElapsed = errors.New("C3|ChallengePeriodNotElapsed: Challenge period for the previous update has not elapsed.")
	ErrCConsensusStateNotFound    = errors.New("C4|ConsensusStateNotFound: No consensus state stored for the given consensus client id.")
	ErrCStaleHeight               = errors.New("C5|StaleHeight: Update does not advance the latest finalized height.")
	ErrCStateCommitmentNotFound   = errors.New("C6|StateCommitmentNotFound: No state commitment stored for the given state machine height.")
)

// GRANDPA verification (G) errors
var (
	ErrGEmptyUnknownHeaders         = errors.New("G1|EmptyUnknownHeaders: Finality proof carries no unknown headers.")
	ErrGTargetMismatch              = errors.New("G2|TargetMismatch: Highest unknown header does not hash to the finality proof block.")
	ErrGJustificationTargetMismatch = errors.New("G3|JustificationTargetMismatch: Justification commit target differs from the finality proof block.")
	ErrGInvalidAncestry             = errors.New("G4|InvalidAncestry: Header range does not connect to the latest finalized block.")
	ErrGBadSignature                = errors.New("G5|BadSignature: One precommit carries an invalid authority signature.")
	ErrGDuplicateVote               = errors.New("G6|DuplicateVote: One authority signed more than one precommit.")
	ErrGInsufficientVotingWeight    = errors.New("G7|InsufficientVotingWeight: Valid precommit weight does not exceed two thirds of the authority set.")
	ErrGUnknownAuthority            = errors.New("G8|UnknownAuthority: Precommit signed by a key outside the active authority set.")
)

// Parachain header (P) errors
var (
	ErrPParachainHeaderNotFound = errors.New("P1|ParachainHeaderNotFound: State proof does not contain the parachain header for the given para id.")
	ErrPInvalidExtrinsicProof   = errors.New("P2|InvalidExtrinsicProof: Timestamp extrinsic inclusion proof is invalid.")
	ErrPMissingTimestamp        = errors.New("P3|MissingTimestamp: Header or extrinsic carries no usable timestamp.")
)

// State/trie proof (S) errors
var (
	ErrSInvalidProof = errors.New("S1|InvalidProof: Trie proof nodes do not hash-chain to the committed root.")
	ErrSInvalidNode  = errors.New("S2|InvalidNode: Trie proof contains a malformed node encoding.")
)

// MMR (M) errors
var (
	ErrMLeafNotFound   = errors.New("M1|LeafNotFound: Requested leaf position was never pushed or its data is unavailable.")
	ErrMCorruptMmr     = errors.New("M2|CorruptMmr: Persisted MMR nodes are missing or inconsistent.")
	ErrMInvalidProof   = errors.New("M3|InvalidProof: Membership proof does not reproduce the committed root.")
	ErrMInvalidMmrSize = errors.New("M4|InvalidMmrSize: Claimed MMR size is not a valid mountain decomposition.")
	ErrMInvalidLeafPos = errors.New("M5|InvalidLeafPos: Leaf position lies outside the MMR of the claimed size.")
)

// Dispatcher (D) errors
var (
	ErrDDuplicateResponse = errors.New("D1|DuplicateResponse: A response for this request was already dispatched.")
)

// Codec (E) errors
var (
	ErrEUnexpectedEOF      = errors.New("E1|UnexpectedEOF: Input ended before the value was fully decoded.")
	ErrENonCanonicalInt    = errors.New("E2|NonCanonicalInt: Compact integer is not minimally encoded.")
	ErrETrailingBytes      = errors.New("E3|TrailingBytes: Input carries bytes past the end of the decoded value.")
	ErrELengthOverflow     = errors.New("E4|LengthOverflow: Declared length exceeds the remaining input.")
	ErrEInvalidEnumVariant = errors.New("E5|InvalidEnumVariant: Unknown variant tag for a closed enum.")
	ErrENonCanonicalMap    = errors.New("E6|NonCanonicalMap: Map keys are not strictly increasing.")
)

// GetErrorName extracts the error name from the error message.
func GetErrorName(err error) string {
	if err == nil {
		return "No Error"
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "|") || !strings.Contains(errStr, ":") {
		return errStr
	}
	parts := strings.SplitN(errStr, "|", 2)
	if len(parts) < 2 {
		return errStr
	}
	nameParts := strings.SplitN(parts[1], ":", 2)
	if len(nameParts) < 1 {
		return errStr
	}
	return strings.TrimSpace(nameParts[0])
}

// GetErrorCode extracts the error code from the error message.
func GetErrorCode(err error) string {
	if err == nil {
		return ""
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "|") {
		return ""
	}
	parts := strings.SplitN(errStr, "|", 2)
	return strings.TrimSpace(parts[0])
}

// GetErrorDesc extracts the error description from the error message.
func GetErrorDesc(err error) string {
	if err == nil {
		return ""
	}
	parts := strings.SplitN(err.Error(), ":", 2)
	if len(parts) < 2 {
		return "DESC NOT SET"
	}
	return strings.TrimSpace(parts[1])
}
