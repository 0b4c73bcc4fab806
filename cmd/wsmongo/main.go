// Command wsmongo manages MongoDB databases running in docker.
package main

import (
	"os"

	"github.com/wsdb/wsmongo/internal/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
