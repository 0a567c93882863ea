package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/urfave/cli/v2"
)

var spotprice = cli.Command{
	Name:   "spotprice",
	Usage:  "request the instantaneous reference price, outside the broadcast stream",
	Action: spotpriceAction,
}

func spotpriceAction(ctx *cli.Context) error {
	conn, err := dialHub(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	req, _ := json.Marshal(map[string]string{"type": "spotprice"})
	if err := conn.WriteMessage(websocket.TextMessage, req); err != nil {
		return fmt.Errorf("cannot send request: %s", err)
	}

	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("no reply from daemon: %s", err)
		}

		var reply struct {
			Kind  string `json:"kind"`
			Price string `json:"price"`
			Error string `json:"error"`
		}
		if err := json.Unmarshal(msg, &reply); err != nil {
			continue
		}

		switch reply.Kind {
		case "spot":
			fmt.Println(reply.Price)
			return nil
		case "error":
			return fmt.Errorf("%s", reply.Error)
		default:
			// Broadcast traffic, keep waiting for our reply.
		}
	}
}
