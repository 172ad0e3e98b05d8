// Command clustercache is an operator tool for caches written by the
// clustercache driver: read, write, count and invalidate keys and tags.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
