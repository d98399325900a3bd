package main

import (
	"os"

	"civicsync/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
