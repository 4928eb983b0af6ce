package memo

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// KeyFunc derives a cache key for a wrapped call. scope is the name given
// to the Wrap helper; args are the call arguments in order.
type KeyFunc func(scope string, args ...any) string

// Key is the default KeyFunc. It serializes the arguments to canonical JSON
// (map keys sorted, deterministic for identical inputs) and hashes the
// bytes with xxhash, yielding "scope:<16 hex digits>". Arguments that JSON
// cannot represent fall back to their fmt verbose form; callers with such
// arguments should supply their own KeyFunc instead.
func Key(scope string, args ...any) string {
	b, err := json.Marshal(args)
	if err != nil {
		b = []byte(fmt.Sprintf("%#v", args))
	}
	return scope + ":" + strconv.FormatUint(xxhash.Sum64(b), 16)
}
