package main

import "github.com/chrofis/magicalstory/cmd"

func main() {
	cmd.Execute()
}
