package main

import (
	"fmt"
	"os"

	apperrors "github.com/Skryldev/image-toolkit/errors"
)

func main() {
	err := rootCmd.Execute()
	teardown()
	if err != nil {
		if apperrors.CategoryOf(err) != "" {
			fmt.Fprintln(os.Stderr, apperrors.UserMessage(err))
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
