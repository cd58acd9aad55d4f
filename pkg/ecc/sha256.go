package ecc

import "crypto/sha256"

type Hash256 = []byte

func Sha256(bytes []byte) Hash256 {
	result := sha256.Sum256(bytes)
	return result[:]
}
