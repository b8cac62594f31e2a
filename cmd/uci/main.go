package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		dieUsage(err.Error())
		return
	}
	os.Exit(exitOK)
}
