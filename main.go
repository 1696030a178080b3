package main

import "video-wizard/cmd"

func main() {
	cmd.Execute()
}
