package main

import "github.com/shopstock/stock-backend/internal/cli"

func main() {
	cli.Execute()
}
