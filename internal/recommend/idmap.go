// Vitrine - Marketplace Product Recommendations
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrinehq/vitrine

package recommend

import (
	"fmt"

	"github.com/goccy/go-json"
)

// IDMap translates between external string IDs and the dense integer indices
// the embedding tables are addressed by. It holds two independent bijections,
// one for users and one for products, each assigned in first-seen order
// during a training scan.
//
// An IDMap is rebuilt from scratch on every training run. Indices are only
// meaningful against the model trained alongside them and must never be
// persisted or compared across runs.
//
// IDMap is not safe for concurrent mutation; it is built single-threaded by
// the trainer and read-only once published inside a Snapshot.
type IDMap struct {
	userIDToIndex    map[string]int
	indexToUserID    []string
	productIDToIndex map[string]int
	indexToProductID []string
}

// NewIDMap returns an empty mapping.
func NewIDMap() *IDMap {
	return &IDMap{
		userIDToIndex:    make(map[string]int),
		productIDToIndex: make(map[string]int),
	}
}

// AssignUser returns the index for a user ID, assigning the next free index
// if the ID is unseen. Idempotent for already-seen IDs.
func (m *IDMap) AssignUser(id string) int {
	if idx, ok := m.userIDToIndex[id]; ok {
		return idx
	}
	idx := len(m.indexToUserID)
	m.userIDToIndex[id] = idx
	m.indexToUserID = append(m.indexToUserID, id)
	return idx
}

// AssignProduct returns the index for a product ID, assigning the next free
// index if the ID is unseen. Idempotent for already-seen IDs.
func (m *IDMap) AssignProduct(id string) int {
	if idx, ok := m.productIDToIndex[id]; ok {
		return idx
	}
	idx := len(m.indexToProductID)
	m.productIDToIndex[id] = idx
	m.indexToProductID = append(m.indexToProductID, id)
	return idx
}

// UserIndex looks up the index for a user ID.
func (m *IDMap) UserIndex(id string) (int, bool) {
	idx, ok := m.userIDToIndex[id]
	return idx, ok
}

// ProductIndex looks up the index for a product ID.
func (m *IDMap) ProductIndex(id string) (int, bool) {
	idx, ok := m.productIDToIndex[id]
	return idx, ok
}

// UserID looks up the user ID at an index.
func (m *IDMap) UserID(idx int) (string, bool) {
	if idx < 0 || idx >= len(m.indexToUserID) {
		return "", false
	}
	return m.indexToUserID[idx], true
}

// ProductID looks up the product ID at an index.
func (m *IDMap) ProductID(idx int) (string, bool) {
	if idx < 0 || idx >= len(m.indexToProductID) {
		return "", false
	}
	return m.indexToProductID[idx], true
}

// NumUsers returns the number of assigned users.
func (m *IDMap) NumUsers() int { return len(m.indexToUserID) }

// NumProducts returns the number of assigned products.
func (m *IDMap) NumProducts() int { return len(m.indexToProductID) }

// idMapWire is the serialized form: four arrays of [key, value] pairs, one
// per direction per entity. Both directions are written out and verified
// against each other on load.
type idMapWire struct {
	UserIDToIndex    [][2]json.RawMessage `json:"userIdToIndex"`
	IndexToUserID    [][2]json.RawMessage `json:"indexToUserId"`
	ProductIDToIndex [][2]json.RawMessage `json:"productIdToIndex"`
	IndexToProductID [][2]json.RawMessage `json:"indexToProductId"`
}

// MarshalJSON serializes the four maps as arrays of [key, value] pairs.
func (m *IDMap) MarshalJSON() ([]byte, error) {
	wire := idMapWire{
		UserIDToIndex:    make([][2]json.RawMessage, 0, len(m.indexToUserID)),
		IndexToUserID:    make([][2]json.RawMessage, 0, len(m.indexToUserID)),
		ProductIDToIndex: make([][2]json.RawMessage, 0, len(m.indexToProductID)),
		IndexToProductID: make([][2]json.RawMessage, 0, len(m.indexToProductID)),
	}

	for idx, id := range m.indexToUserID {
		idJSON, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		idxJSON, err := json.Marshal(idx)
		if err != nil {
			return nil, err
		}
		wire.UserIDToIndex = append(wire.UserIDToIndex, [2]json.RawMessage{idJSON, idxJSON})
		wire.IndexToUserID = append(wire.IndexToUserID, [2]json.RawMessage{idxJSON, idJSON})
	}
	for idx, id := range m.indexToProductID {
		idJSON, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		idxJSON, err := json.Marshal(idx)
		if err != nil {
			return nil, err
		}
		wire.ProductIDToIndex = append(wire.ProductIDToIndex, [2]json.RawMessage{idJSON, idxJSON})
		wire.IndexToProductID = append(wire.IndexToProductID, [2]json.RawMessage{idxJSON, idJSON})
	}

	return json.Marshal(wire)
}

// UnmarshalJSON restores the mapping from its pair-array form and verifies
// that the two directions are exact inverses with contiguous indices.
func (m *IDMap) UnmarshalJSON(data []byte) error {
	var wire idMapWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("decode mapping: %w", err)
	}

	users, err := decodeForward(wire.UserIDToIndex)
	if err != nil {
		return fmt.Errorf("userIdToIndex: %w", err)
	}
	products, err := decodeForward(wire.ProductIDToIndex)
	if err != nil {
		return fmt.Errorf("productIdToIndex: %w", err)
	}

	userList, err := buildIndexList(users)
	if err != nil {
		return fmt.Errorf("user mapping: %w", err)
	}
	productList, err := buildIndexList(products)
	if err != nil {
		return fmt.Errorf("product mapping: %w", err)
	}

	if err := verifyBackward(wire.IndexToUserID, userList); err != nil {
		return fmt.Errorf("indexToUserId: %w", err)
	}
	if err := verifyBackward(wire.IndexToProductID, productList); err != nil {
		return fmt.Errorf("indexToProductId: %w", err)
	}

	m.userIDToIndex = users
	m.indexToUserID = userList
	m.productIDToIndex = products
	m.indexToProductID = productList
	return nil
}

// decodeForward parses [id, index] pairs into a map.
func decodeForward(pairs [][2]json.RawMessage) (map[string]int, error) {
	out := make(map[string]int, len(pairs))
	for _, pair := range pairs {
		var id string
		if err := json.Unmarshal(pair[0], &id); err != nil {
			return nil, fmt.Errorf("pair key: %w", err)
		}
		var idx int
		if err := json.Unmarshal(pair[1], &idx); err != nil {
			return nil, fmt.Errorf("pair value: %w", err)
		}
		if _, dup := out[id]; dup {
			return nil, fmt.Errorf("duplicate id %q", id)
		}
		out[id] = idx
	}
	return out, nil
}

// buildIndexList inverts a forward map, requiring indices to form a
// contiguous 0..n-1 range.
func buildIndexList(forward map[string]int) ([]string, error) {
	list := make([]string, len(forward))
	seen := make([]bool, len(forward))
	for id, idx := range forward {
		if idx < 0 || idx >= len(list) {
			return nil, fmt.Errorf("index %d out of range for %d entries", idx, len(list))
		}
		if seen[idx] {
			return nil, fmt.Errorf("duplicate index %d", idx)
		}
		seen[idx] = true
		list[idx] = id
	}
	return list, nil
}

// verifyBackward checks that the serialized backward pairs agree with the
// list derived from the forward map.
func verifyBackward(pairs [][2]json.RawMessage, list []string) error {
	if len(pairs) != len(list) {
		return fmt.Errorf("length mismatch: %d pairs, %d forward entries", len(pairs), len(list))
	}
	for _, pair := range pairs {
		var idx int
		if err := json.Unmarshal(pair[0], &idx); err != nil {
			return fmt.Errorf("pair key: %w", err)
		}
		var id string
		if err := json.Unmarshal(pair[1], &id); err != nil {
			return fmt.Errorf("pair value: %w", err)
		}
		if idx < 0 || idx >= len(list) {
			return fmt.Errorf("index %d out of range", idx)
		}
		if list[idx] != id {
			return fmt.Errorf("directions disagree at index %d: %q vs %q", idx, list[idx], id)
		}
	}
	return nil
}
