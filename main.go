package main

import "github.com/km-arc/go-inject/framework/console"

func main() {
	console.Execute()
}
