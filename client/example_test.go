package client_test

import (
	"context"
	"fmt"
	"log"

	"github.com/frobware/go-pfq"
	"github.com/frobware/go-pfq/client"
)

func ExampleDial() {
	c, err := client.Dial(client.DefaultSocketPath())
	if err != nil {
		log.Fatal(err)
	}
	defer c.Close()

	ctx := context.Background()
	gid, err := c.JoinFree(ctx, 0, pfq.ClassDefault, pfq.PolicyShared)
	if err != nil {
		log.Fatal(err)
	}
	if err := c.SetSteering(ctx, gid, "steer_flow"); err != nil {
		log.Fatal(err)
	}
	fmt.Println("joined group", gid)
}
