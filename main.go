package main

import "github.com/nekruzvatanshoev/carchat/pkg/cmd"

func main() {
	cmd.Execute()
}
