// Command consultora manages the client records of an accounting practice.
package main

import "github.com/mesh-intelligence/consultora/internal/cli"

func main() {
	cli.Execute()
}
