// Command server runs the API without the maintenance CLI, for container
// images that only ever serve.
package main

import (
	"context"
	"log"

	"github.com/shashiranjanraj/zepto/pkg/app"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	ctx := context.Background()
	a, err := app.New(ctx)
	if err != nil {
		return err
	}
	defer a.Close(context.Background()) //nolint:errcheck
	return a.Serve(ctx)
}
