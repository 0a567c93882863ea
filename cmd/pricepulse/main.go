package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := cli.NewApp()

	app.Version = "0.1.0"
	app.Name = "pricepulse CLI"
	app.Usage = "Command line interface for pricepulsed daemon subscribers"
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:  "addr",
			Usage: "host:port of the pricepulsed subscriber interface",
			Value: "localhost:8080",
		},
	}
	app.Commands = append(
		app.Commands,
		&stream,
		&spotprice,
	)

	err := app.Run(os.Args)
	if err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "[pricepulse] %v\n", err)
	os.Exit(1)
}
