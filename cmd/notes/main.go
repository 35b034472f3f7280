// Command notes runs the notes server and talks to it.
//
//	notes serve
//	notes client demo
//	notes client create "remember the milk"
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
