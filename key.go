package compdb

import (
	"encoding/binary"

	"github.com/maruel/compdb/world"
)

// KeyLen is the exact width of stored keys in bytes.
const KeyLen = 4

// EncodeKey renders an object id as a fixed-width big-endian storage key.
func EncodeKey(id world.ObjectID) []byte {
	var b [KeyLen]byte
	binary.BigEndian.PutUint32(b[:], uint32(id))
	return b[:]
}

// DecodeKey parses a storage key back to an object id. It returns false
// for keys of any width other than [KeyLen] and for the reserved nil id;
// such records are foreign or corrupt and must not be interpreted.
func DecodeKey(b []byte) (world.ObjectID, bool) {
	if len(b) != KeyLen {
		return world.Nil, false
	}
	id := world.ObjectID(binary.BigEndian.Uint32(b))
	if id.IsNil() {
		return world.Nil, false
	}
	return id, true
}
