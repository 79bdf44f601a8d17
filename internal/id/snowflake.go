// Package id issues time-ordered run identifiers.
package id

import (
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node *snowflake.Node
	once sync.Once
	err  error
)

// Init sets the snowflake node id. Only the first call has effect.
func Init(nodeID int64) error {
	once.Do(func() {
		node, err = snowflake.NewNode(nodeID)
	})
	return err
}

// New returns a new unique id. It initializes node 1 if Init was never called.
func New() int64 {
	_ = Init(1)
	return node.Generate().Int64()
}
