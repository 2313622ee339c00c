package main

import "github.com/slmtnm/s4json/cmd"

func main() {
	cmd.Execute()
}
