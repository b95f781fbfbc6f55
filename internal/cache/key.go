// Package cache memoizes search results by request, with TTL expiry and a
// snapshot persisted to disk.
package cache

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"hash"
	"slices"

	"github.com/usestring/chunkgrep/pkg/types"
)

// Key derives the cache key of req. Every field is length-prefixed so that
// distinct requests cannot encode to the same byte stream. Files and
// directories are sorted; pattern order is kept.
func Key(req *types.SearchRequest) string {
	h := sha256.New()

	patterns := req.Patterns()
	writeLen(h, len(patterns))
	for _, p := range patterns {
		writeString(h, p.String())
	}

	files := req.Files()
	slices.Sort(files)
	writeStrings(h, files)

	dirs := req.Directories()
	slices.Sort(dirs)
	writeStrings(h, dirs)

	o := req.Options()
	flags := []bool{
		o.Invert, o.CaseInsensitive, o.Recursive, o.CountOnly,
		o.ShowLineNumber, o.ShowLineText, o.ShowFileName, o.ShowPattern,
	}
	var bits byte
	for i, set := range flags {
		if set {
			bits |= 1 << i
		}
	}
	h.Write([]byte{bits})

	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

func writeLen(h hash.Hash, n int) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(n))
	h.Write(buf[:])
}

func writeString(h hash.Hash, s string) {
	writeLen(h, len(s))
	h.Write([]byte(s))
}

func writeStrings(h hash.Hash, ss []string) {
	writeLen(h, len(ss))
	for _, s := range ss {
		writeString(h, s)
	}
}
