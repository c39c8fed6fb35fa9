package main

import "github.com/localhub/server/cmd/server/cmd"

func main() {
	cmd.Execute()
}
