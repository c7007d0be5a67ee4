package main

import (
	"github.com/benedict-erwin/carbon-collector/cmd"
)

func main() {
	cmd.Execute()
}
