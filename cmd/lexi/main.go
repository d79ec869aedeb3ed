package main

import "github.com/yungbote/lexi-backend/internal/cli"

func main() {
	cli.Execute()
}
