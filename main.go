package main

import "github.com/KaramelBytes/tensorloom-cli/cmd"

func main() {
	cmd.Execute()
}
