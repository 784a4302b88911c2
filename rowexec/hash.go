package rowexec

import (
	"strconv"

	"github.com/mitchellh/hashstructure"
)

// hashKey hashes a GROUP BY tuple or a full row's value set into a
// stable string key for in-memory grouping/deduplication.
func hashKey(v interface{}) (string, error) {
	h, err := hashstructure.Hash(v, nil)
	if err != nil {
		return "", err
	}
	return strconv.FormatUint(h, 16), nil
}
