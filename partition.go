package compdb

import (
	"hash/fnv"
	"io"
	"reflect"
	"strconv"
)

// PartitionName derives a partition name from the identity of T by hashing
// its fully qualified type name. The result is deterministic for a given
// build but changes if the type is renamed or moved; prefer passing an
// explicit, stable name to [Register] for data that must survive
// refactors.
func PartitionName[T any]() string {
	t := reflect.TypeFor[T]()
	h := fnv.New64a()
	_, _ = io.WriteString(h, t.PkgPath())
	_, _ = io.WriteString(h, ".")
	_, _ = io.WriteString(h, t.String())
	return strconv.FormatUint(h.Sum64(), 10)
}
