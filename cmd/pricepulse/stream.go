package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/websocket"
	"github.com/urfave/cli/v2"
)

var stream = cli.Command{
	Name:   "stream",
	Usage:  "connect to the hub and print every broadcast tick",
	Action: streamAction,
}

func streamAction(ctx *cli.Context) error {
	conn, err := dialHub(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-sigChan
		conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return nil
		}
		fmt.Println(string(msg))
	}
}

func dialHub(ctx *cli.Context) (*websocket.Conn, error) {
	url := fmt.Sprintf("ws://%s/ws", ctx.String("addr"))
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to %s: %s", url, err)
	}
	return conn, nil
}
