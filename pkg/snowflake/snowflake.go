package snowflake

import (
	"os"
	"strconv"

	"github.com/bwmarrin/snowflake"
)

var node *snowflake.Node

// 多实例部署时通过 SNOWFLAKE_NODE 区分节点（0-1023）
func init() {
	id := int64(1)
	if v, err := strconv.ParseInt(os.Getenv("SNOWFLAKE_NODE"), 10, 64); err == nil {
		id = v
	}
	n, err := snowflake.NewNode(id)
	if err != nil {
		n, _ = snowflake.NewNode(1)
	}
	node = n
}

func GenID() int64 {
	return node.Generate().Int64()
}
