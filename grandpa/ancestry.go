// Package grandpa verifies GRANDPA finality proofs: weighted ed25519
// precommit quorums, header ancestry, authority-set rotation, and the
// parachain headers finalized under a relay chain target.
package grandpa

import (
	"github.com/polytope-labs/go-ismp/common"
	"github.com/polytope-labs/go-ismp/ismperrors"
	"github.com/polytope-labs/go-ismp/types"
)

// AncestryChain indexes a fixed header set by hash and answers
// connectivity queries over it.
type AncestryChain struct {
	headers map[common.Hash]*types.Header
}

func NewAncestryChain(headers []types.Header) *AncestryChain {
	chain := &AncestryChain{headers: make(map[common.Hash]*types.Header, len(headers))}
	for i := range headers {
		h := headers[i]
		chain.headers[h.Hash()] = &h
	}
	return chain
}

// Extend adds more headers to the index.
func (c *AncestryChain) Extend(headers []types.Header) {
	for i := range headers {
		h := headers[i]
		c.headers[h.Hash()] = &h
	}
}

func (c *AncestryChain) Header(hash common.Hash) (*types.Header, bool) {
	h, ok := c.headers[hash]
	return h, ok
}

// Ancestry walks parent pointers from `to` back to `from` and returns the
// hashes on the route, `to` included, `from` excluded. The walk is bounded
// by the known header count so malformed input cannot loop. A walk that
// leaves the known set before reaching `from` is ErrGInvalidAncestry.
func (c *AncestryChain) Ancestry(from, to common.Hash) (map[common.Hash]bool, error) {
	route := make(map[common.Hash]bool)
	cursor := to
	for steps := 0; steps <= len(c.headers); steps++ {
		if cursor == from {
			return route, nil
		}
		header, ok := c.headers[cursor]
		if !ok {
			return nil, ismperrors.ErrGInvalidAncestry
		}
		route[cursor] = true
		cursor = header.ParentHash
	}
	return nil, ismperrors.ErrGInvalidAncestry
}

// IsAncestor reports whether ancestor is an ancestor of (or equal to)
// descendant within the known set.
func (c *AncestryChain) IsAncestor(ancestor, descendant common.Hash) bool {
	_, err := c.Ancestry(ancestor, descendant)
	return err == nil
}
