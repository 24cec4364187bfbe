package main

import "github.com/noteshelf/noteshelf/cmd"

func main() {
	cmd.Execute()
}
