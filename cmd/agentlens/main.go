// Package main provides the entry point for the agentlens CLI.
package main

func main() {
	Execute()
}
