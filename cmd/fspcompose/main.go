// Command fspcompose composes FSP observer service definitions.
package main

import "github.com/flare-foundation/fspcompose/internal/cmd"

func main() {
	cmd.Execute()
}
