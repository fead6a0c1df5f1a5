package main

import "github.com/vibast-solutions/ms-go-sponsorships/cmd"

func main() {
	cmd.Execute()
}
