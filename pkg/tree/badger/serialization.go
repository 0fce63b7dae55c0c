package badger

import (
	"encoding/json"
	"fmt"

	"github.com/marmos91/davtree/pkg/tree"
)

// encodeItem serializes an item for storage.
//
// Items are stored as JSON. The fields are small and JSON keeps the
// on-disk format debuggable with standard tooling; serialization time is
// negligible next to the disk write.
func encodeItem(item *tree.Item) ([]byte, error) {
	data, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("failed to encode item %s: %w", item.ID, err)
	}
	return data, nil
}

// decodeItem deserializes an item record.
func decodeItem(data []byte) (*tree.Item, error) {
	var item tree.Item
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("failed to decode item: %w", err)
	}
	return &item, nil
}
