// cmd/dingbot/main.go
package main

import (
	"github.com/wordforest/dingbot/internal/cli"
)

func main() {
	cli.Execute()
}
