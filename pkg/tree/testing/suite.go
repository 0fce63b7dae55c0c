// Package testing provides a reusable conformance suite for tree.Store
// implementations.
//
// Every backend (memory, badger, future databases) runs the same suite so
// the interface contract stays identical across implementations.
package testing

import (
	"testing"

	"github.com/marmos91/davtree/pkg/tree"
)

// StoreTestSuite is a comprehensive test suite for Store implementations.
// It tests the interface contract, not implementation details, making it
// reusable across different implementations (memory, badger, etc.).
type StoreTestSuite struct {
	// NewStore is a factory function that creates a fresh Store instance
	// for each test. This ensures test isolation.
	NewStore func() tree.Store
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(test *testing.T) {
	test.Run("Root", suite.RunRootTests)
	test.Run("Insert", suite.RunInsertTests)
	test.Run("Lookup", suite.RunLookupTests)
	test.Run("Update", suite.RunUpdateTests)
	test.Run("Delete", suite.RunDeleteTests)
	test.Run("UsedBytes", suite.RunUsedBytesTests)
}
