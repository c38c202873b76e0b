package main

import "github.com/apricityDigital/attendease-backend/cmd"

func main() {
	cmd.Execute()
}
