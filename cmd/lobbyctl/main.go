package main

import "github.com/nightfall-games/werewolf-lobby/internal/cli"

func main() {
	cli.Execute()
}
