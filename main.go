// Command memory-forge is an on-demand semantic knowledge index for AI
// coding agents: index markdown under knowledge/, query it by meaning,
// and audit the files every agent autoloads for context bloat.
package main

import "memoryforge/cmd"

func main() {
	cmd.Execute()
}
