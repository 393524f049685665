package main

import (
	_ "github.com/joho/godotenv/autoload"

	"github.com/mridungeorge/portfolio/cmd"
)

func main() {
	cmd.Execute()
}
