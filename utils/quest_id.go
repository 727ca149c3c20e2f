package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// DeriveQuestID generates the content-derived quest identifier the
// dashboard also computes client-side: 0x-prefixed sha256 of the quest
// name. Ids are stable across restarts for the same name.
func DeriveQuestID(name string) string {
	sum := sha256.Sum256([]byte(name))
	return "0x" + hex.EncodeToString(sum[:])
}
