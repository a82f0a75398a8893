package main

import "github.com/allodoc/allodoc-backend/cmd"

func main() {
	cmd.Execute()
}
