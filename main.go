package main

import "github.com/fulmenhq/repocheck/cmd"

func main() {
	cmd.Execute()
}
