package main

import "github/chapool/go-txpipeline/cmd"

func main() {
	cmd.Execute()
}
