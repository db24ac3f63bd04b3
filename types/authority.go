package types

import (
	"github.com/polytope-labs/go-ismp/codec"
)

// Authority is one weighted GRANDPA voter.
type Authority struct {
	Key    Ed25519Key
	Weight uint64
}

type AuthorityList []Authority

func (l AuthorityList) TotalWeight() uint64 {
	var total uint64
	for _, a := range l {
		total += a.Weight
	}
	return total
}

// WeightOf returns the voting weight of key, or (0, false) if key is not in
// the set.
func (l AuthorityList) WeightOf(key Ed25519Key) (uint64, bool) {
	for _, a := range l {
		if a.Key == key {
			return a.Weight, true
		}
	}
	return 0, false
}

func (l AuthorityList) Encode(w *codec.Writer) {
	w.Compact(uint64(len(l)))
	for _, a := range l {
		w.Raw(a.Key.Bytes())
		w.Uint64(a.Weight)
	}
}

func DecodeAuthorityList(r *codec.Reader) (AuthorityList, error) {
	n, err := r.Length()
	if err != nil {
		return nil, err
	}
	list := make(AuthorityList, 0, n)
	for i := 0; i < n; i++ {
		key, err := r.Raw(32)
		if err != nil {
			return nil, err
		}
		weight, err := r.Uint64()
		if err != nil {
			return nil, err
		}
		list = append(list, Authority{Key: BytesToEd25519Key(key), Weight: weight})
	}
	return list, nil
}
