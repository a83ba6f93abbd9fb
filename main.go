package main

import "github.com/vaibhav0806/prophit-sub001/cmd"

func main() {
	cmd.Execute()
}
