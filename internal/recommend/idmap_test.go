// Vitrine - Marketplace Product Recommendations
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrinehq/vitrine

package recommend

import (
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func TestIDMapAssignFirstSeenOrder(t *testing.T) {
	m := NewIDMap()

	if idx := m.AssignUser("alice"); idx != 0 {
		t.Errorf("first user index = %d, want 0", idx)
	}
	if idx := m.AssignUser("bob"); idx != 1 {
		t.Errorf("second user index = %d, want 1", idx)
	}
	// Repeated assignment is idempotent.
	if idx := m.AssignUser("alice"); idx != 0 {
		t.Errorf("repeated assign = %d, want 0", idx)
	}

	if idx := m.AssignProduct("p9"); idx != 0 {
		t.Errorf("first product index = %d, want 0", idx)
	}
	if idx := m.AssignProduct("p1"); idx != 1 {
		t.Errorf("second product index = %d, want 1", idx)
	}

	if m.NumUsers() != 2 || m.NumProducts() != 2 {
		t.Errorf("counts = (%d, %d), want (2, 2)", m.NumUsers(), m.NumProducts())
	}
}

func TestIDMapBijection(t *testing.T) {
	m := NewIDMap()
	users := []string{"u3", "u1", "u2", "u1", "u3", "u4"}
	for _, u := range users {
		m.AssignUser(u)
	}

	// Forward and backward lookups must be exact inverses over a
	// contiguous index range.
	for i := 0; i < m.NumUsers(); i++ {
		id, ok := m.UserID(i)
		if !ok {
			t.Fatalf("missing user at index %d", i)
		}
		idx, ok := m.UserIndex(id)
		if !ok || idx != i {
			t.Errorf("round trip failed: index %d -> %q -> %d", i, id, idx)
		}
	}

	if _, ok := m.UserID(m.NumUsers()); ok {
		t.Error("expected lookup past end to fail")
	}
	if _, ok := m.UserIndex("never-seen"); ok {
		t.Error("expected unknown user lookup to fail")
	}
}

func TestIDMapJSONRoundTrip(t *testing.T) {
	m := NewIDMap()
	for _, u := range []string{"u1", "u2", "u3"} {
		m.AssignUser(u)
	}
	for _, p := range []string{"pA", "pB"} {
		m.AssignProduct(p)
	}

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	// The wire format is four arrays of [key, value] pairs.
	for _, field := range []string{"userIdToIndex", "indexToUserId", "productIdToIndex", "indexToProductId"} {
		if !strings.Contains(string(data), field) {
			t.Errorf("serialized form missing %q: %s", field, data)
		}
	}

	restored := NewIDMap()
	if err := json.Unmarshal(data, restored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if restored.NumUsers() != 3 || restored.NumProducts() != 2 {
		t.Fatalf("restored counts = (%d, %d), want (3, 2)",
			restored.NumUsers(), restored.NumProducts())
	}
	for _, u := range []string{"u1", "u2", "u3"} {
		orig, _ := m.UserIndex(u)
		got, ok := restored.UserIndex(u)
		if !ok || got != orig {
			t.Errorf("user %q: restored index %d, want %d", u, got, orig)
		}
	}
	for _, p := range []string{"pA", "pB"} {
		orig, _ := m.ProductIndex(p)
		got, ok := restored.ProductIndex(p)
		if !ok || got != orig {
			t.Errorf("product %q: restored index %d, want %d", p, got, orig)
		}
	}
}

func TestIDMapUnmarshalRejectsCorrupt(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{
			name: "gap in indices",
			data: `{"userIdToIndex":[["a",0],["b",2]],"indexToUserId":[[0,"a"],[2,"b"]],"productIdToIndex":[],"indexToProductId":[]}`,
		},
		{
			name: "directions disagree",
			data: `{"userIdToIndex":[["a",0],["b",1]],"indexToUserId":[[0,"b"],[1,"a"]],"productIdToIndex":[],"indexToProductId":[]}`,
		},
		{
			name: "duplicate index",
			data: `{"userIdToIndex":[["a",0],["b",0]],"indexToUserId":[[0,"a"],[0,"b"]],"productIdToIndex":[],"indexToProductId":[]}`,
		},
		{
			name: "duplicate id",
			data: `{"userIdToIndex":[["a",0],["a",1]],"indexToUserId":[[0,"a"],[1,"a"]],"productIdToIndex":[],"indexToProductId":[]}`,
		},
		{
			name: "length mismatch",
			data: `{"userIdToIndex":[["a",0]],"indexToUserId":[],"productIdToIndex":[],"indexToProductId":[]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewIDMap()
			if err := json.Unmarshal([]byte(tt.data), m); err == nil {
				t.Error("expected unmarshal to reject corrupt mapping")
			}
		})
	}
}

func TestIDMapEmptyRoundTrip(t *testing.T) {
	m := NewIDMap()

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	restored := NewIDMap()
	if err := json.Unmarshal(data, restored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if restored.NumUsers() != 0 || restored.NumProducts() != 0 {
		t.Errorf("expected empty mapping, got (%d, %d)",
			restored.NumUsers(), restored.NumProducts())
	}
}
