package types

import (
	"github.com/polytope-labs/go-ismp/codec"
	"github.com/polytope-labs/go-ismp/common"
	"github.com/polytope-labs/go-ismp/ismperrors"
)

// PostRequest is an opaque cross-chain message from Source to Dest.
type PostRequest struct {
	Source           StateMachine
	Dest             StateMachine
	Nonce            uint64
	From             []byte
	To               []byte
	TimeoutTimestamp uint64
	Body             []byte
}

func (p *PostRequest) Encode(w *codec.Writer) {
	p.Source.Encode(w)
	p.Dest.Encode(w)
	w.Uint64(p.Nonce)
	w.VarBytes(p.From)
	w.VarBytes(p.To)
	w.Uint64(p.TimeoutTimestamp)
	w.VarBytes(p.Body)
}

func (p *PostRequest) Decode(r *codec.Reader) error {
	if err := p.Source.Decode(r); err != nil {
		return err
	}
	if err := p.Dest.Decode(r); err != nil {
		return err
	}
	var err error
	if p.Nonce, err = r.Uint64(); err != nil {
		return err
	}
	if p.From, err = r.VarBytes(); err != nil {
		return err
	}
	if p.To, err = r.VarBytes(); err != nil {
		return err
	}
	if p.TimeoutTimestamp, err = r.Uint64(); err != nil {
		return err
	}
	p.Body, err = r.VarBytes()
	return err
}

// GetRequest asks Dest for the values of Keys at Height.
type GetRequest struct {
	Source           StateMachine
	Dest             StateMachine
	Nonce            uint64
	From             []byte
	Keys             [][]byte
	Height           uint32
	TimeoutTimestamp uint64
}

func (g *GetRequest) Encode(w *codec.Writer) {
	g.Source.Encode(w)
	g.Dest.Encode(w)
	w.Uint64(g.Nonce)
	w.VarBytes(g.From)
	w.Compact(uint64(len(g.Keys)))
	for _, k := range g.Keys {
		w.VarBytes(k)
	}
	w.Uint32(g.Height)
	w.Uint64(g.TimeoutTimestamp)
}

func (g *GetRequest) Decode(r *codec.Reader) error {
	if err := g.Source.Decode(r); err != nil {
		return err
	}
	if err := g.Dest.Decode(r); err != nil {
		return err
	}
	var err error
	if g.Nonce, err = r.Uint64(); err != nil {
		return err
	}
	if g.From, err = r.VarBytes(); err != nil {
		return err
	}
	n, err := r.Length()
	if err != nil {
		return err
	}
	g.Keys = make([][]byte, n)
	for i := 0; i < n; i++ {
		if g.Keys[i], err = r.VarBytes(); err != nil {
			return err
		}
	}
	if g.Height, err = r.Uint32(); err != nil {
		return err
	}
	g.TimeoutTimestamp, err = r.Uint64()
	return err
}

type RequestKind byte

const (
	RequestPost RequestKind = iota
	RequestGet
)

// Request is the closed union of request flavors.
type Request struct {
	Kind RequestKind
	Post *PostRequest
	Get  *GetRequest
}

func (q *Request) Encode(w *codec.Writer) {
	w.Byte(byte(q.Kind))
	switch q.Kind {
	case RequestPost:
		q.Post.Encode(w)
	default:
		q.Get.Encode(w)
	}
}

func (q *Request) Decode(r *codec.Reader) error {
	tag, err := r.Byte()
	if err != nil {
		return err
	}
	switch RequestKind(tag) {
	case RequestPost:
		q.Kind = RequestPost
		q.Post = new(PostRequest)
		return q.Post.Decode(r)
	case RequestGet:
		q.Kind = RequestGet
		q.Get = new(GetRequest)
		return q.Get.Decode(r)
	default:
		return ismperrors.ErrEInvalidEnumVariant
	}
}

// PostResponse answers a PostRequest; it embeds the request it answers.
type PostResponse struct {
	Post             PostRequest
	Response         []byte
	TimeoutTimestamp uint64
}

func (p *PostResponse) Encode(w *codec.Writer) {
	p.Post.Encode(w)
	w.VarBytes(p.Response)
	w.Uint64(p.TimeoutTimestamp)
}

func (p *PostResponse) Decode(r *codec.Reader) error {
	if err := p.Post.Decode(r); err != nil {
		return err
	}
	var err error
	if p.Response, err = r.VarBytes(); err != nil {
		return err
	}
	p.TimeoutTimestamp, err = r.Uint64()
	return err
}

type LeafKind byte

const (
	LeafRequest LeafKind = iota
	LeafResponse
)

// Leaf is what gets appended to the MMR: a request or a response. Once
// pushed its position is immutable; only acknowledgement bookkeeping is
// ever removed, never the leaf.
type Leaf struct {
	Kind     LeafKind
	Request  *Request
	Response *PostResponse
}

func RequestLeaf(q *Request) Leaf {
	return Leaf{Kind: LeafRequest, Request: q}
}

func ResponseLeaf(p *PostResponse) Leaf {
	return Leaf{Kind: LeafResponse, Response: p}
}

func (l *Leaf) Encode(w *codec.Writer) {
	w.Byte(byte(l.Kind))
	switch l.Kind {
	case LeafRequest:
		l.Request.Encode(w)
	default:
		l.Response.Encode(w)
	}
}

func (l *Leaf) Bytes() []byte {
	w := codec.NewWriter()
	l.Encode(w)
	return w.Bytes()
}

func (l *Leaf) Decode(r *codec.Reader) error {
	tag, err := r.Byte()
	if err != nil {
		return err
	}
	switch LeafKind(tag) {
	case LeafRequest:
		l.Kind = LeafRequest
		l.Request = new(Request)
		return l.Request.Decode(r)
	case LeafResponse:
		l.Kind = LeafResponse
		l.Response = new(PostResponse)
		return l.Response.Decode(r)
	default:
		return ismperrors.ErrEInvalidEnumVariant
	}
}

func DecodeLeaf(data []byte) (*Leaf, error) {
	r := codec.NewReader(data)
	l := new(Leaf)
	if err := l.Decode(r); err != nil {
		return nil, err
	}
	if err := r.Finish(); err != nil {
		return nil, err
	}
	return l, nil
}

// Commitment is the leaf's identity: a hash of its encoding under the
// deployment's hasher.
func (l *Leaf) Commitment(kind common.HashKind) common.Hash {
	return kind.Sum(l.Bytes())
}
