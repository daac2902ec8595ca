package main

import "github.com/ampm-club/portal/cmd/portalctl/cmd"

func main() {
	cmd.Execute()
}
