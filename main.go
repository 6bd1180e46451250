package main

import "flowlab/grader/cmd"

func main() {
	cmd.Execute()
}
