package sym

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"math"

	"golang.org/x/text/unicode/norm"

	"github.com/fluxion-dg/fluxion/flux"
)

// Digest is a domain-separated SHA-256 over the canonical encoding of a
// node. Two nodes are structurally equal exactly when their digests are
// equal; digests are stable across process runs, so they can key caches,
// sets, and on-disk artifacts.
type Digest [32]byte

// String returns the hex form of the digest.
func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// Short returns the first 12 hex characters, for log output.
func (d Digest) Short() string { return hex.EncodeToString(d[:6]) }

// Equal reports structural equality of two nodes via their digests.
func Equal(a, b Node) bool { return a.Digest() == b.Digest() }

// Domain prefixes for content-addressed identity. The version suffix
// enables future encoding migration without silent collisions.
const (
	domainVar             = "fluxion/sym/var/v1"
	domainSubscript       = "fluxion/sym/subscript/v1"
	domainScalarParam     = "fluxion/sym/scalar-param/v1"
	domainConst           = "fluxion/sym/const/v1"
	domainNormalComponent = "fluxion/sym/normal-component/v1"
	domainSum             = "fluxion/sym/sum/v1"
	domainProduct         = "fluxion/sym/product/v1"
	domainVector          = "fluxion/sym/vector/v1"
	domainCSE             = "fluxion/sym/cse/v1"
	domainBinding         = "fluxion/sym/binding/v1"
	domainBoundaryPair    = "fluxion/sym/boundary-pair/v1"
	domainOperator        = "fluxion/sym/operator/v1"
)

// digestWriter accumulates the canonical encoding of one node: the domain
// string, a null separator, then the node's fields. Strings are
// NFC-normalized and length-prefixed; numbers are fixed-width big-endian;
// child digests are fixed 32-byte values. The encoding is therefore
// unambiguous within a domain.
type digestWriter struct {
	h hash.Hash
}

func newDigestWriter(domain string) *digestWriter {
	w := &digestWriter{h: sha256.New()}
	w.h.Write([]byte(domain))
	w.h.Write([]byte{0x00})
	return w
}

// str writes an NFC-normalized, length-prefixed string. Normalization
// keeps visually identical names (composed vs decomposed Unicode) from
// producing distinct digests.
func (w *digestWriter) str(s string) {
	b := norm.NFC.Bytes([]byte(s))
	w.num(int64(len(b)))
	w.h.Write(b)
}

func (w *digestWriter) num(v int64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	w.h.Write(buf[:])
}

func (w *digestWriter) f64(v float64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], math.Float64bits(v))
	w.h.Write(buf[:])
}

func (w *digestWriter) child(n Node) {
	d := n.Digest()
	w.h.Write(d[:])
}

func (w *digestWriter) children(ns []Node) {
	w.num(int64(len(ns)))
	for _, n := range ns {
		w.child(n)
	}
}

func (w *digestWriter) fluxChild(n flux.Node) {
	d := n.Digest()
	w.h.Write(d[:])
}

func (w *digestWriter) sum() Digest {
	var d Digest
	copy(d[:], w.h.Sum(nil))
	return d
}

// opDigest computes the digest of an operator from its kind tag and
// parameters. Operators share one domain; the kind tag separates them.
func opDigest(kind string, write func(*digestWriter)) Digest {
	w := newDigestWriter(domainOperator)
	w.str(kind)
	if write != nil {
		write(w)
	}
	return w.sum()
}
