// Command pluginbridge runs tier A: the plugin bridge co-located with a
// note vault host, serving /mcp and /bridge/v1/* over a loopback listener.
package main

import "os"

func main() {
	os.Exit(run())
}
