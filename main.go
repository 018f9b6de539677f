// The main package for the harvester executable.
package main

import (
	"github.com/atxeats/harvester/cmd"
)

func main() {
	cmd.Execute()
}
