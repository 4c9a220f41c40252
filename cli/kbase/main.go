package main

import (
	"os"

	kbasecmder "github.com/papercomputeco/kbase/cmd/kbase"
)

func main() {
	cmd := kbasecmder.NewKbaseCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
