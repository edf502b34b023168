package main

import (
	"context"

	"shop-assistant/internal/cli"
)

func main() {
	cli.Execute(context.Background())
}
