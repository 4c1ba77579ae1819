package bolt12

import (
	"bytes"
	"crypto/sha256"
)

// taggedHash computes a BIP340-style tagged hash: SHA256(SHA256(tag) ||
// SHA256(tag) || msg). Using a tag keeps this hash's output
// domain-separated from every other use of SHA256 in the signature
// scheme, so a hash computed for one purpose can never be replayed as
// input to another.
func taggedHash(tag string, msg []byte) [32]byte {
	tagHash := sha256.Sum256([]byte(tag))

	h := sha256.New()
	h.Write(tagHash[:])
	h.Write(tagHash[:])
	h.Write(msg)

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// leafHash hashes one TLV record's raw encoded bytes (type, length, and
// value) under the "LnLeaf" tag, so that each record contributes an
// independent commitment that can be reordered with its siblings but not
// forged without the original bytes.
func leafHash(recordBytes []byte) [32]byte {
	return taggedHash("LnLeaf", recordBytes)
}

// branchHash combines two child hashes under the "LnBranch" tag. Children
// are ordered least-first so the tree is built the same way regardless
// of which child a caller happens to pass first.
func branchHash(a, b [32]byte) [32]byte {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	return taggedHash("LnBranch", append(a[:], b[:]...))
}

// merkleRoot builds a binary Merkle tree over fields in the order given
// (callers pass them through sortedFields first, so by ascending TLV
// type) and returns its root. An odd one out at any level is carried up
// unchanged rather than duplicated, since duplicating the last leaf
// would let an attacker graft a forged record onto a tree of odd size.
func merkleRoot(fields []record) ([32]byte, error) {
	leaves := make([][32]byte, len(fields))
	for i, f := range fields {
		v := f.value
		encoded, err := encodeRecords([]record{{typ: f.typ, value: v}})
		if err != nil {
			return [32]byte{}, err
		}
		leaves[i] = leafHash(encoded)
	}

	level := leaves
	for len(level) > 1 {
		next := make([][32]byte, 0, (len(level)+1)/2)
		for i := 0; i+1 < len(level); i += 2 {
			next = append(next, branchHash(level[i], level[i+1]))
		}
		if len(level)%2 == 1 {
			next = append(next, level[len(level)-1])
		}
		level = next
	}

	if len(level) == 0 {
		return [32]byte{}, nil
	}
	return level[0], nil
}

// sortedFields returns fields in ascending TLV type order, the order
// every encode/merkle/signature operation in this package assumes.
func sortedFields(fields []record) []record {
	sorted := make([]record, len(fields))
	copy(sorted, fields)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1].typ > sorted[j].typ; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	return sorted
}

// signatureDigest is the 32-byte message a Schnorr signature is actually
// computed over: the Merkle root of every field except the signature
// field itself, tagged with the message name so a signature produced
// for an offer can never be replayed as a signature over an invoice.
func signatureDigest(messageName string, fields []record) ([32]byte, error) {
	root, err := merkleRoot(sortedFields(fields))
	if err != nil {
		return [32]byte{}, err
	}
	return taggedHash("lightning"+messageName+"signature", root[:]), nil
}
