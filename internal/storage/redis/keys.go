package redis

import (
	"fmt"

	"github.com/mcoot/battlerelay/internal/storage"
)

// Key prefix for all relay data
const keyPrefix = "battlerelay"

// counterKey returns the Redis key for one abuse counter of one instance
func counterKey(instance string, counter storage.Counter) string {
	return fmt.Sprintf("%s:%s:abuse:%s", keyPrefix, instance, counter)
}
