package main

import "github.com/fieldscope/fieldrec-api/cmd"

func main() {
	cmd.Execute()
}
