package main

import "github.com/user/vulndash/cmd"

func main() {
	cmd.Execute()
}
