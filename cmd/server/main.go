package main

import (
	"log"

	"ocrbridge/internal/server"
)

func main() {
	if err := server.Run(); err != nil {
		log.Fatal(err)
	}
}
