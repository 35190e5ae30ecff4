package main

import "lcd-translator/cmd"

func main() {
	cmd.Execute()
}
