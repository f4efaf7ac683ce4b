package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/zurustar/necroturtle/pkg/app"
)

func main() {
	application := app.New(os.Stdin, os.Stdout)
	if err := application.Run(os.Args[1:]); err != nil {
		// 儀式の失敗メッセージは表示済み
		if !errors.Is(err, app.ErrRitualFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
