package main

import (
	"log"

	"github.com/hireloop/talent-matcher/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
