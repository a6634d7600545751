package main

import "github.com/wirebird/crm/cmd"

func main() {
	cmd.Execute()
}
