package main

import "github.com/kozaktomas/light-recon/cmd"

func main() {
	cmd.Execute()
}
