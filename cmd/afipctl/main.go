package main

import "github.com/jhoicas/facturador-afip/internal/cli"

func main() {
	cli.Execute()
}
