package util

import (
	"crypto/md5"
	"encoding/hex"
)

// TagRecordKey returns the storage key holding the member list of tag:
// prefix + "tag_" + md5(tag) in lowercase hex.
func TagRecordKey(prefix, tag string) string {
	sum := md5.Sum([]byte(tag))
	return prefix + "tag_" + hex.EncodeToString(sum[:])
}
