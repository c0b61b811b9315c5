package main

import "github.com/SuperDARNCanada/globus/cmd"

func main() {
	cmd.Execute()
}
