/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import "testing"

type widget struct{ ID string }

type gadget struct{ ID string }

func TestRegisterTable(t *testing.T) {
	t.Cleanup(func() {
		Unregister[widget]()
		Unregister[gadget]()
	})

	if _, ok := TableFor[widget](); ok {
		t.Fatal("Expected no registration for widget")
	}

	RegisterTable[widget]("widgets")
	name, ok := TableFor[widget]()
	if !ok || name != "widgets" {
		t.Fatalf("Expected widgets, got %q (%v)", name, ok)
	}

	// Pointer and value types resolve to the same table
	if name, _ := TableFor[*widget](); name != "widgets" {
		t.Fatalf("Expected *widget to resolve to widgets, got %q", name)
	}

	RegisterTable[widget]("widgets_v2")
	if name, _ := TableFor[widget](); name != "widgets_v2" {
		t.Fatalf("Expected re-registration to replace, got %q", name)
	}

	if _, ok := TableFor[gadget](); ok {
		t.Fatal("Expected gadget to be unregistered")
	}

	Unregister[widget]()
	if _, ok := TableFor[widget](); ok {
		t.Fatal("Expected widget to be unregistered")
	}
}
