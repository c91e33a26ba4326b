// kebiao 排课命令行入口
package main

import (
	"os"

	"github.com/paiban/kebiao/internal/cli"
)

// 构建信息（通过 ldflags 注入）
var Version = "dev"

func main() {
	os.Exit(cli.Execute(Version))
}
