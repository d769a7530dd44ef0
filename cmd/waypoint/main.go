// Command waypoint runs declarative state-machine workflows.
package main

import (
	"os"

	"github.com/AbdelazizMoustafa10m/Waypoint/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
