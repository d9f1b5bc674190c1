package main

import "foreachfix/cmd"

func main() {
	cmd.Execute()
}
