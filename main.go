// package main is a thin shim that runs the itest command-line tool; all the
// work is done in the cmd package.

package main

import (
	"github.com/wtsi-hgi/itest/cmd"
)

func main() {
	cmd.Execute()
}
