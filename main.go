// The main package for the marketcrawler executable.
package main

import "github.com/JakeFAU/market-potential-crawler/cmd"

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
