/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"reflect"
	"sync"
)

// entityTables maps Go entity types to the table that stores them.
var (
	entityTables = make(map[reflect.Type]string)
	mu           sync.RWMutex
)

// RegisterTable associates entity type T with a table name. Registering T
// again replaces the earlier name.
func RegisterTable[T any](table string) {
	mu.Lock()
	defer mu.Unlock()
	entityTables[typeOf[T]()] = table
}

// TableFor returns the table registered for T, if any.
func TableFor[T any]() (string, bool) {
	mu.RLock()
	defer mu.RUnlock()
	name, ok := entityTables[typeOf[T]()]
	return name, ok
}

// Unregister removes the registration for T.
func Unregister[T any]() {
	mu.Lock()
	defer mu.Unlock()
	delete(entityTables, typeOf[T]())
}

// typeOf normalizes *T to T so that both resolve to the same table.
func typeOf[T any]() reflect.Type {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
