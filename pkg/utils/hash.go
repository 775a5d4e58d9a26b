package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
)

// SumSHA256 returns the hex encoded SHA-256 checksum of the provided data.
func SumSHA256(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// SHA256Writer hashes and counts bytes written through it, for use with io.TeeReader.
type SHA256Writer struct {
	h hash.Hash
	n int64
}

func NewSHA256Writer() *SHA256Writer {
	return &SHA256Writer{h: sha256.New()}
}

func (w *SHA256Writer) Write(p []byte) (int, error) {
	n, err := w.h.Write(p)
	w.n += int64(n)
	return n, err
}

// Sum returns the hex checksum of everything written so far.
func (w *SHA256Writer) Sum() string { return hex.EncodeToString(w.h.Sum(nil)) }

// Size returns the number of bytes written.
func (w *SHA256Writer) Size() int64 { return w.n }
