package main

import "vocab-loader/cmd"

func main() {
	cmd.Execute()
}
