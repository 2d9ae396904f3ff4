// Command gateway runs tier B: the public, OAuth-protected remote MCP
// gateway that routes a bearer-authenticated session to the plugin bridge
// registered to its resolved user.
package main

import "os"

func main() {
	os.Exit(run())
}
