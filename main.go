package main

import "github.com/AllegroVivo/FrogBot/cmd"

func main() {
	cmd.Execute()
}
