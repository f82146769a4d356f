package main

import (
	"fmt"

	"github.com/webitel/eee-runtime/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		fmt.Println(err.Error())
		return
	}
}
