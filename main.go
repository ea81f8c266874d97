package main

import "mainmuse-backend/cmd"

func main() {
	cmd.Run()
}
