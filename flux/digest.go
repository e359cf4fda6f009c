package flux

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"math"
)

// Digest is a domain-separated SHA-256 over the canonical encoding of a
// flux expression. Structurally equal expressions digest equally; digests
// are stable across process runs.
type Digest [32]byte

// String returns the hex form of the digest.
func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// Domain prefixes for content-addressed identity. The version suffix
// enables future encoding migration.
const (
	domainConst          = "fluxion/flux/const/v1"
	domainNormal         = "fluxion/flux/normal/v1"
	domainFieldComponent = "fluxion/flux/field-component/v1"
	domainPenaltyTerm    = "fluxion/flux/penalty/v1"
	domainIfPositive     = "fluxion/flux/if-positive/v1"
	domainSum            = "fluxion/flux/sum/v1"
	domainProduct        = "fluxion/flux/product/v1"
)

// digestWriter accumulates the canonical encoding: the domain string, a
// null separator, then fixed-width fields. Child digests are fixed 32-byte
// values, so the encoding is self-delimiting.
type digestWriter struct {
	h hash.Hash
}

func newDigestWriter(domain string) *digestWriter {
	w := &digestWriter{h: sha256.New()}
	w.h.Write([]byte(domain))
	w.h.Write([]byte{0x00})
	return w
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

func (w *digestWriter) bool(v bool) {
	if v {
		w.h.Write([]byte{0x01})
		return
	}
	w.h.Write([]byte{0x00})
}

func (w *digestWriter) child(d Digest) {
	w.h.Write(d[:])
}

func (w *digestWriter) sum() Digest {
	var d Digest
	copy(d[:], w.h.Sum(nil))
	return d
}

func constDigest(v float64) Digest {
	w := newDigestWriter(domainConst)
	w.f64(v)
	return w.sum()
}

func normalDigest(axis int) Digest {
	w := newDigestWriter(domainNormal)
	w.num(int64(axis))
	return w.sum()
}

func fieldComponentDigest(index int, interior bool) Digest {
	w := newDigestWriter(domainFieldComponent)
	w.num(int64(index))
	w.bool(interior)
	return w.sum()
}

func penaltyDigest(power float64) Digest {
	w := newDigestWriter(domainPenaltyTerm)
	w.f64(power)
	return w.sum()
}

func ifPositiveDigest(criterion, then, els Node) Digest {
	w := newDigestWriter(domainIfPositive)
	w.child(criterion.Digest())
	w.child(then.Digest())
	w.child(els.Digest())
	return w.sum()
}

func sumDigest(terms []Node) Digest {
	w := newDigestWriter(domainSum)
	w.num(int64(len(terms)))
	for _, t := range terms {
		w.child(t.Digest())
	}
	return w.sum()
}

func productDigest(factors []Node) Digest {
	w := newDigestWriter(domainProduct)
	w.num(int64(len(factors)))
	for _, f := range factors {
		w.child(f.Digest())
	}
	return w.sum()
}
