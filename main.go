package main

import (
	"github.com/adstech/opensink/cmd"
)

func main() {
	cmd.Execute()
}
