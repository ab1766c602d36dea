package main

import "event-catalog/cmd/eventsd/cmd"

func main() {
	cmd.Execute()
}
