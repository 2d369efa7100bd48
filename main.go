package main

import (
	"github.com/truthlens/truthlens/cmd"
)

func main() {
	cmd.Execute()
}
