package main

import "github.com/KaramelBytes/csvinsight-cli/cmd"

func main() {
	cmd.Execute()
}
