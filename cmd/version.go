package cmd

import "fmt"

// runVersion displays version information.
func runVersion() {
	fmt.Printf("CargoTrail %s\n", AppVersion)
	fmt.Printf("Build: %s\n", BuildTime)
	fmt.Printf("Commit: %s\n", GitCommit)
}
