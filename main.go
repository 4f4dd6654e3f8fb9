package main

import (
	"context"
	"errors"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/lehigh-university-libraries/report-comparator/cmd"
	"github.com/lehigh-university-libraries/report-comparator/internal/comparison"
)

const version = "0.1.0"

func main() {
	root := cmd.NewRootCmd()

	if err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt, os.Kill),
	); err != nil {
		// Partial failure of an "all" run is distinguishable from total failure.
		if errors.Is(err, comparison.ErrPartialFailure) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
